package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")).Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#059669")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Text is the uncoloured status line, empty when v is hidden.
func Text(v View) string {
	switch v.Mode {
	case ModePending:
		if v.Syncing {
			return fmt.Sprintf("Syncing %d pending...", v.Pending)
		}
		return fmt.Sprintf("%d pending (type 'sync' to sync now)", v.Pending)
	case ModeBackOnline:
		return "Back online"
	case ModeOffline:
		return fmt.Sprintf("Offline mode (%d queued)", v.Pending)
	}
	return ""
}

// Render returns the styled status line relative to now.
func Render(v View, now time.Time) string {
	if !v.Visible {
		return ""
	}

	var style lipgloss.Style
	switch v.Mode {
	case ModePending:
		style = pendingStyle
	case ModeBackOnline:
		style = onlineStyle
	default:
		style = offlineStyle
	}

	line := style.Render(Text(v))
	if !v.LastSync.IsZero() {
		line += dimStyle.Render(" · last synced " + RelTime(v.LastSync, now))
	}
	return line
}

// RelTime formats t relative to now, e.g. "3 minutes ago".
func RelTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
