package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ryfenlabs/presale-cli/internal/presale"
)

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

func trimErr(s string) string {
	// Strip common noisy prefixes from RPC error messages.
	for _, prefix := range []string{
		"Post \"", "dial tcp", "connection refused",
		"no healthy RPC", "context deadline",
	} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if len(s) > 48 {
		return s[:48] + "…"
	}
	return s
}

// parseAmount parses a user-typed amount. Only positive finite values count.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// validAmountRune reports whether r may be appended to the amount input cur:
// digits always, one dot at most, and a sane overall length.
func validAmountRune(cur string, r rune) bool {
	if len(cur) >= 18 {
		return false
	}
	if r >= '0' && r <= '9' {
		return true
	}
	return r == '.' && !strings.ContainsRune(cur, '.')
}

// renderBar draws a filled progress bar for pct (0–100) at the given width.
func renderBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return StyleSuccess.Render(strings.Repeat("█", filled)) +
		StyleMeta.Render(strings.Repeat("░", width-filled))
}

// formatCountdown renders a countdown as 02d 11:04:09 (days omitted at zero).
func formatCountdown(c presale.Countdown) string {
	if !c.Known {
		return "…"
	}
	if c.Days > 0 {
		return fmt.Sprintf("%02dd %02d:%02d:%02d", c.Days, c.Hours, c.Minutes, c.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}
