package httpdiff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLines computes the line-level difference between the baseline text and
// a peer text. The character-level engine runs over line tokens (the
// DiffLinesToChars reduction) so every resulting entry is a whole line; entry
// order follows source order. Blank lines are preserved.
func DiffLines(baseline, peer string) []DiffEntry {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lineArray := dmp.DiffLinesToChars(baseline, peer)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var entries []DiffEntry
	for _, d := range diffs {
		var tag ChangeTag
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			tag = TagInsert
		case diffmatchpatch.DiffDelete:
			tag = TagDelete
		default:
			tag = TagEqual
		}
		for _, line := range SplitLines(d.Text) {
			entries = append(entries, DiffEntry{Tag: tag, Text: line})
		}
	}
	return entries
}

// EqualEntries renders text as an all-Equal diff vector, one entry per line.
// This is the baseline request's diff.
func EqualEntries(text string) []DiffEntry {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return nil
	}
	entries := make([]DiffEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, DiffEntry{Tag: TagEqual, Text: line})
	}
	return entries
}

// SplitLines splits text into lines without the trailing newline terminator.
// Interior blank lines survive; an empty text yields no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// HasChanges reports whether any entry differs from the baseline.
func HasChanges(entries []DiffEntry) bool {
	for _, entry := range entries {
		if entry.Tag != TagEqual {
			return true
		}
	}
	return false
}
