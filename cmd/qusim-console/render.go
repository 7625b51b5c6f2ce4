package main

import (
	"fmt"
	"math/cmplx"
	"sort"
	"strings"
)

// ──────────────────────────── State panel ────────────────────────────

// renderStatePanel renders the register view: the qubit strip with the
// cursor, then one probability bar per basis state.
func (m Model) renderStatePanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Register %d — %d qubits", m.handle, m.numQubits)))
	sb.WriteString("\n\n")

	// Qubit strip, MSQ on the left
	sb.WriteString("  ")
	for q := m.numQubits - 1; q >= 0; q-- {
		label := fmt.Sprintf(" q[%d] ", q)
		switch {
		case q == m.cursorQubit && m.focus != focusSelectTarget:
			sb.WriteString(cursorStyle.Render("▸" + label))
		case q == m.cursorQubit:
			sb.WriteString(cursorStyle.Render("●" + label))
		case q == m.targetQubit && m.focus == focusSelectTarget:
			sb.WriteString(targetSelectStyle.Render("▸" + label))
		default:
			sb.WriteString(qubitLabelStyle.Render(" " + label))
		}
	}
	sb.WriteString("\n\n")

	if m.amps == nil {
		sb.WriteString(dimStyle.Render("  state vector too wide to display"))
		return stateStyle.Width(width).Height(height).Render(sb.String())
	}

	rows := stateRows(m.amps, m.numQubits)
	maxRows := max(height-8, 4)
	truncated := false
	if len(rows) > maxRows {
		// keep the most probable states on screen
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].prob > rows[j].prob })
		rows = rows[:maxRows]
		sort.Slice(rows, func(i, j int) bool { return rows[i].idx < rows[j].idx })
		truncated = true
	}

	for _, row := range rows {
		filled := int(row.prob*float64(barW) + 0.5)
		bar := barStyle.Render(strings.Repeat("█", filled)) +
			dimStyle.Render(strings.Repeat("░", barW-filled))
		amp := fmt.Sprintf("%+.4f%+.4fi", real(row.amp), imag(row.amp))
		fmt.Fprintf(&sb, "  %s %s %s %s\n",
			qubitLabelStyle.Render(fmt.Sprintf("|%0*b⟩", m.numQubits, row.idx)),
			bar,
			fmt.Sprintf("%6.2f%%", row.prob*100),
			dimStyle.Render(fmt.Sprintf("%*s", ampColW, amp)))
	}
	if truncated {
		sb.WriteString(dimStyle.Render("  … most probable states shown\n"))
	}

	// Status line
	if m.focus == focusSelectTarget {
		sb.WriteString("\n  ")
		sb.WriteString(activeStyle.Render(m.pending.name))
		sb.WriteString("  Select target qubit: ")
		sb.WriteString(targetSelectStyle.Render(fmt.Sprintf("q[%d]", m.targetQubit)))
		sb.WriteString(dimStyle.Render("   ↑↓ Move  Enter Confirm  Esc Cancel"))
	} else if m.statusMsg != "" {
		sb.WriteString("\n  ")
		sb.WriteString(errStyle.Render(m.statusMsg))
	}

	return stateStyle.Width(width).Height(height).Render(sb.String())
}

type stateRow struct {
	idx  int
	amp  complex128
	prob float64
}

func stateRows(amps []complex128, numQubits int) []stateRow {
	rows := make([]stateRow, len(amps))
	for i, amp := range amps {
		p := cmplx.Abs(amp)
		rows[i] = stateRow{idx: i, amp: amp, prob: p * p}
	}
	return rows
}

// ──────────────────────────── Log panel ────────────────────────────

// renderLogPanel renders the operation history, most recent first.
func (m Model) renderLogPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("History"))
	sb.WriteString("\n\n")

	maxRows := max(height-5, 3)
	for i, entry := range m.history {
		if i >= maxRows {
			break
		}
		if strings.HasPrefix(entry, "error:") {
			sb.WriteString(errStyle.Render("  " + entry))
		} else if i == 0 {
			sb.WriteString(activeStyle.Render("  " + entry))
		} else {
			sb.WriteString(dimStyle.Render("  " + entry))
		}
		sb.WriteString("\n")
	}

	return logStyle.Width(width).Height(height).Render(sb.String())
}

// renderControlsPanel renders the bottom help/controls bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeStyle.Render("Navigate: "))
	sb.WriteString("↑↓/jk Move qubit cursor")
	sb.WriteString("    ")
	sb.WriteString(activeStyle.Render("a"))
	sb.WriteString(" Apply operation\n")

	sb.WriteString(activeStyle.Render("Actions:  "))
	sb.WriteString("m Measure  r Reset  p Refresh  q/^C Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites the overlay string on top of the background at position (x, y).
// It handles ANSI escape sequences by tracking visible column positions.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	ovLines := strings.Split(overlay, "\n")

	for i, ovLine := range ovLines {
		bgIdx := y + i
		if bgIdx < 0 || bgIdx >= len(bgLines) {
			continue
		}
		bgLines[bgIdx] = spliceLineAt(bgLines[bgIdx], ovLine, x)
	}
	return strings.Join(bgLines, "\n")
}

// spliceLineAt replaces visible columns starting at position x in bgLine with overlay content.
// It properly handles ANSI escape sequences in the background line.
func spliceLineAt(bgLine, overlay string, x int) string {
	runes := []rune(bgLine)
	ovWidth := visibleLen(overlay)

	var prefix strings.Builder
	var suffix strings.Builder

	col := 0
	i := 0
	inEsc := false

	// Collect prefix: everything up to visible column x
	for i < len(runes) && col < x {
		if runes[i] == '\x1b' {
			inEsc = true
			for i < len(runes) {
				prefix.WriteRune(runes[i])
				if inEsc && runes[i] != '\x1b' && runes[i] != '[' && ((runes[i] >= 'A' && runes[i] <= 'Z') || (runes[i] >= 'a' && runes[i] <= 'z')) {
					inEsc = false
					i++
					break
				}
				i++
			}
		} else {
			prefix.WriteRune(runes[i])
			col++
			i++
		}
	}

	// Pad prefix if bg line is shorter than x
	for col < x {
		prefix.WriteRune(' ')
		col++
	}

	// Skip over ovWidth visible columns in the background
	skipped := 0
	for i < len(runes) && skipped < ovWidth {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				i++
				if i > 0 && runes[i-1] != '\x1b' && runes[i-1] != '[' && ((runes[i-1] >= 'A' && runes[i-1] <= 'Z') || (runes[i-1] >= 'a' && runes[i-1] <= 'z')) {
					break
				}
			}
		} else {
			skipped++
			i++
		}
	}

	// Collect suffix: rest of the background line
	for i < len(runes) {
		suffix.WriteRune(runes[i])
		i++
	}

	return prefix.String() + overlay + suffix.String()
}

// visibleLen returns the number of visible (non-ANSI-escape) characters in a string.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
