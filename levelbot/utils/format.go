package utils

import (
	"fmt"
	"strings"
)

const progressBarWidth = 10

// ProgressBar renders a fixed-width text meter like ▰▰▰▱▱▱▱▱▱▱.
func ProgressBar(current, target int) string {
	if target <= 0 {
		return strings.Repeat("▱", progressBarWidth)
	}
	filled := current * progressBarWidth / target
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressBarWidth-filled)
}

// FormatXP renders an XP amount with a thousands separator.
func FormatXP(xp int64) string {
	s := fmt.Sprintf("%d", xp)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
