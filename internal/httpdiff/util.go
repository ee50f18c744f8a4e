package httpdiff

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"
)

var filenamePattern = regexp.MustCompile(`[<>"/\\|?*]`)

// SanitizeFilename replaces characters that are unsafe in file names with
// spaces, keeping saved artifact paths readable.
func SanitizeFilename(input string) string {
	return filenamePattern.ReplaceAllString(input, " ")
}

func intToString(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// PrettifyDuration renders a duration the way the batch summary reports it:
// fractional seconds under a minute, then "N minutes and M seconds", then
// hours.
func PrettifyDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		seconds := d.Seconds()
		if seconds == float64(int64(seconds)) {
			return fmt.Sprintf("%.0f seconds", seconds)
		}
		return fmt.Sprintf("%.2f seconds", seconds)
	case d < time.Hour:
		minutes := int(d.Minutes())
		remaining := d - time.Duration(minutes)*time.Minute
		noun := "minutes"
		if minutes == 1 {
			noun = "minute"
		}
		if remaining > 0 {
			return fmt.Sprintf("%d %s and %s", minutes, noun, PrettifyDuration(remaining))
		}
		return fmt.Sprintf("%d %s", minutes, noun)
	default:
		hours := int(d.Hours())
		remaining := d - time.Duration(hours)*time.Hour
		noun := "hours"
		if hours == 1 {
			noun = "hour"
		}
		if remaining > 0 {
			return fmt.Sprintf("%d %s and %s", hours, noun, PrettifyDuration(remaining))
		}
		return fmt.Sprintf("%d %s", hours, noun)
	}
}

var (
	sadEmojis   = []string{"🤢", "🤬", "🙄", "😣", "😫", "☹️", "🙁", "😓", "😕"}
	happyEmojis = []string{"😀", "😁", "😃", "😄", "🥳", "😆", "😊", "😎", "🤩"}
)

// HappyEmoji garnishes the all-green batch summary.
func HappyEmoji() string { return happyEmojis[rand.Intn(len(happyEmojis))] }

// SadEmoji garnishes the batch summary when jobs failed.
func SadEmoji() string { return sadEmojis[rand.Intn(len(sadEmojis))] }
