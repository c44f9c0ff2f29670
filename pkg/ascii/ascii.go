// Package ascii renders boxes and tables for terminal output. Widths are
// measured in display cells so CJK page names keep the borders aligned.
package ascii

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Box builds a box containing the provided lines and returns it as a string.
// Lines are left-aligned with single-space padding on each side.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	trimmed := make([]string, len(lines))
	maxWidth := 0
	for i, line := range lines {
		trimmed[i] = strings.TrimRight(line, " ")
		if w := StringWidth(trimmed[i]); w > maxWidth {
			maxWidth = w
		}
	}

	innerWidth := maxWidth + 2
	border := strings.Repeat("─", innerWidth)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range trimmed {
		sb.WriteString("│ " + pad(line, maxWidth) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Table renders rows under a header with box-drawing borders. Rows shorter
// than the header are padded with empty cells; extra cells are dropped.
// Cells wider than maxCell (when positive) are truncated with an ellipsis.
func Table(header []string, rows [][]string, maxCell int) string {
	if len(header) == 0 {
		return ""
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, row := range rows {
		norm := make([]string, len(header))
		copy(norm, row)
		cells = append(cells, norm)
	}

	widths := make([]int, len(header))
	for r := range cells {
		for c := range cells[r] {
			if maxCell > 0 {
				cells[r][c] = Truncate(cells[r][c], maxCell)
			}
			if w := StringWidth(cells[r][c]); w > widths[c] {
				widths[c] = w
			}
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return left + strings.Join(parts, mid) + right + "\n"
	}

	var sb strings.Builder
	sb.WriteString(rule("┌", "┬", "┐"))
	for r, row := range cells {
		sb.WriteString("│")
		for c, cell := range row {
			sb.WriteString(" " + pad(cell, widths[c]) + " │")
		}
		sb.WriteString("\n")
		if r == 0 {
			sb.WriteString(rule("├", "┼", "┤"))
		}
	}
	sb.WriteString(rule("└", "┴", "┘"))
	return sb.String()
}

// Truncate shortens value so that its display width fits within width. An
// ellipsis ("...") is appended when truncation occurs and there is space for it.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return substringWithWidth(value, width)
	}
	return substringWithWidth(value, width-3) + "..."
}

func substringWithWidth(s string, target int) string {
	width := 0
	var sb strings.Builder
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if width+w > target {
			break
		}
		width += w
		sb.WriteRune(r)
	}
	return sb.String()
}

func pad(s string, width int) string {
	if fill := width - StringWidth(s); fill > 0 {
		return s + strings.Repeat(" ", fill)
	}
	return s
}

// StringWidth returns the display width of s.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
