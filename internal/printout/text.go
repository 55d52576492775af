package printout

import (
	"fmt"
	"io"
	"strings"

	"github.com/feeledger-dev/feeledger/internal/pagination"
)

const textWidth = 38

// Text writes a plain-text preview of pages, cards side by side in the same
// grid as the workbook.
func Text(out io.Writer, pages []pagination.Page, inst pagination.Institution) error {
	for _, p := range pages {
		if _, err := fmt.Fprintf(out, "=== Page %d (%d of %d slots used) ===\n", p.Number, p.Occupied(), len(p.Slots)); err != nil {
			return err
		}
		for r := 0; r < p.Rows; r++ {
			var blocks [][]string
			for c := 0; c < pagination.Columns; c++ {
				s := p.Slots[r*pagination.Columns+c]
				if s.Empty() {
					blocks = append(blocks, nil)
					continue
				}
				blocks = append(blocks, cardLines(pagination.Compose(*s.Bill, inst)))
			}
			if err := writeRow(out, blocks); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRow(out io.Writer, blocks [][]string) error {
	height := 0
	for _, b := range blocks {
		height = max(height, len(b))
	}
	if height == 0 {
		return nil
	}
	for i := 0; i < height; i++ {
		cols := make([]string, len(blocks))
		for j, b := range blocks {
			line := ""
			if i < len(b) {
				line = b[i]
			}
			cols[j] = fmt.Sprintf("%-*s", textWidth, line)
		}
		if _, err := fmt.Fprintln(out, strings.TrimRight(strings.Join(cols, "  "), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}

func cardLines(c pagination.Card) []string {
	rule := strings.Repeat("-", textWidth)
	var lines []string
	for _, h := range c.Header {
		lines = append(lines, center(h, textWidth))
	}
	lines = append(lines, rule)
	for _, id := range c.Identity {
		lines = append(lines, fmt.Sprintf("%-18s %-19s", id[0].Key+": "+id[0].Value, id[1].Key+": "+id[1].Value))
	}
	lines = append(lines, rule)
	for _, it := range c.Items {
		lines = append(lines, pairLine(it))
	}
	lines = append(lines, rule)
	for _, s := range c.Summary {
		lines = append(lines, pairLine(s))
	}
	return lines
}

func pairLine(p pagination.Pair) string {
	return fmt.Sprintf("%-*s%*s", textWidth-14, p.Key, 14, p.Value)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
