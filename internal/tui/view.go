package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"httpdiff/internal/httpdiff"
	"httpdiff/internal/state"
)

func (m Model) theme() Theme {
	if m.State.Theme == state.ThemeLight {
		return LightTheme()
	}
	return DarkTheme()
}

func (m Model) View() string {
	theme := m.theme()

	if m.State.ShowHelp {
		return m.renderHelp(theme)
	}

	var body string
	switch m.State.CurrentScreen {
	case state.ScreenException:
		body = m.renderException(theme)
	case state.ScreenJobInfo:
		body = m.renderJobInfo(theme)
	default:
		body = m.renderHome(theme)
	}

	sections := []string{m.renderHeader(theme), body}
	if m.State.Notification != nil {
		sections = append(sections, m.renderNotification(theme, *m.State.Notification))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(theme Theme) string {
	title := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("http-diff")

	meta := lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Render(fmt.Sprintf(" %s | concurrency %d | %s",
			strings.Join(m.State.Domains, " vs "),
			m.State.ConcurrencyLevel,
			downloadRate(m.State.Downloaded)))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(theme.Border).
		Width(max(m.width, 1)).
		Render(title + meta)
}

// downloadRate summarizes the newest 200 ms download window.
func downloadRate(history []uint64) string {
	if len(history) == 0 {
		return "0 B/s"
	}
	perSecond := history[0] * 5
	switch {
	case perSecond >= 1<<20:
		return fmt.Sprintf("%.1f MB/s", float64(perSecond)/float64(1<<20))
	case perSecond >= 1<<10:
		return fmt.Sprintf("%.1f KB/s", float64(perSecond)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B/s", perSecond)
	}
}

func (m Model) renderHome(theme Theme) string {
	if len(m.State.Jobs) == 0 {
		return lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(1, 2).
			Render("Waiting for jobs... press 'h' for help")
	}

	headerStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(theme.Foreground)
	selectedStyle := lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Secondary).
		Bold(true)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(" %-48s", "endpoint")))
	for _, domain := range m.State.Domains {
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-30s", domain)))
	}
	b.WriteString("\n")

	for i, job := range m.State.Jobs {
		style := rowStyle
		if i == m.State.SelectedIndex {
			style = selectedStyle
		}

		b.WriteString(style.Render(fmt.Sprintf(" %-48s", truncate(job.JobName, 48))))
		for r := range job.Requests {
			request := &job.Requests[r]
			cell := fmt.Sprintf(" %-30s", truncate(request.StatusText(), 30))
			switch request.Status {
			case httpdiff.StatusFinished:
				b.WriteString(style.Foreground(theme.Success).Render(cell))
			case httpdiff.StatusFailed:
				b.WriteString(style.Foreground(theme.Error).Render(cell))
			default:
				b.WriteString(style.Render(cell))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderJobInfo(theme Theme) string {
	selected := m.State.SelectedJob
	if selected == nil {
		return ""
	}

	tabStyle := lipgloss.NewStyle().Foreground(theme.Muted).Padding(0, 1)
	activeTabStyle := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Padding(0, 1).
		Underline(true)

	var tabs []string
	for i := range selected.Job.Requests {
		label := truncate(selected.Job.Requests[i].URI.String(), 48)
		if i == selected.TabIndex {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	equalStyle := lipgloss.NewStyle().Foreground(theme.Foreground)
	insertStyle := lipgloss.NewStyle().Foreground(theme.Added)
	deleteStyle := lipgloss.NewStyle().Foreground(theme.Removed)

	diffs := selected.CurrentDiffs()
	visible := m.viewport.Height
	if visible <= 0 {
		visible = 30
	}

	start := selected.VerticalScroll
	if start > len(diffs) {
		start = len(diffs)
	}
	end := start + visible
	if end > len(diffs) {
		end = len(diffs)
	}

	var lines []string
	for _, entry := range diffs[start:end] {
		text := fmt.Sprintf("%s %s", entry.Tag, entry.Text)
		switch entry.Tag {
		case httpdiff.TagInsert:
			lines = append(lines, insertStyle.Render(text))
		case httpdiff.TagDelete:
			lines = append(lines, deleteStyle.Render(text))
		default:
			lines = append(lines, equalStyle.Render(text))
		}
	}

	position := fmt.Sprintf("line %d of %d", min(start+1, len(diffs)), len(diffs))
	footer := lipgloss.NewStyle().Foreground(theme.Muted).Render(
		position + "  tab: next request | shift+arrows: jump diffs | esc: back")

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		strings.Join(lines, "\n"),
		footer,
	)
}

func (m Model) renderException(theme Theme) string {
	message := "unknown error"
	if m.State.CriticalException != nil {
		message = m.State.CriticalException.Error()
	}

	errorStyle := lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true).
		Padding(1, 2)
	hintStyle := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Padding(0, 2)

	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render(message),
		hintStyle.Render("Fix the configuration file (the watcher reloads it automatically),"),
		hintStyle.Render("press 'g' to generate a default configuration, or 'q' to quit."),
	)
}

func (m Model) renderNotification(theme Theme, n httpdiff.Notification) string {
	var color lipgloss.Color
	switch n.Type {
	case httpdiff.NotificationSuccess:
		color = theme.Success
	case httpdiff.NotificationWarning:
		color = theme.Warning
	default:
		color = theme.Error
	}

	body := n.Body
	if left, ok := n.PercentageLeft(time.Now()); ok {
		body = fmt.Sprintf("%s (%d%%)", body, left)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Padding(0, 1).
		Render(body)
}

func (m Model) renderHelp(theme Theme) string {
	keyStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(theme.Foreground)

	bindings := [][2]string{
		{"R", "restart all jobs"},
		{"r", "restart the selected job"},
		{"enter", "open diffs for a failed job"},
		{"tab", "switch request tab"},
		{"up/down", "select row / scroll diffs"},
		{"shift+up/down", "jump between failed jobs / diff groups"},
		{"shift+left/right", "previous / next failed job diffs"},
		{"s", "save the selected job"},
		{"S", "save all failed jobs"},
		{"t", "toggle theme"},
		{"g", "generate a default configuration"},
		{"esc", "close overlay / dismiss notification"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(keyStyle.Render(" Key bindings") + "\n\n")
	for _, binding := range bindings {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-18s", binding[0])),
			descStyle.Render(binding[1])))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(1, 2).
		Render(b.String())
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
