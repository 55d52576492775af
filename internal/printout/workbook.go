// Package printout renders paginated bills as an xlsx workbook for printing
// and as plain text for a terminal preview.
package printout

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/feeledger-dev/feeledger/internal/pagination"
)

const (
	blockCols = 4 // key, value, key, value
	gutter    = 1
)

// SheetName returns the worksheet name for a page.
func SheetName(page int) string {
	return fmt.Sprintf("Page %d", page)
}

// Workbook builds a workbook with one sheet per page. Each occupied slot is
// a block of cells in the page's 2-column grid; empty slots stay blank.
// The caller closes the returned file.
func Workbook(pages []pagination.Page, inst pagination.Institution) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating style: %w", err)
	}
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 13},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold, title: title}
	for i, page := range pages {
		name := SheetName(page.Number)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				f.Close()
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}

		w.sheet = name
		if err := w.page(page, inst); err != nil {
			f.Close()
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
	}
	return f, nil
}

// WriteWorkbook renders pages and writes the xlsx bytes to out.
func WriteWorkbook(out io.Writer, pages []pagination.Page, inst pagination.Institution) error {
	f, err := Workbook(pages, inst)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	bold  int
	title int
	err   error
}

func (w *sheetWriter) page(p pagination.Page, inst pagination.Institution) error {
	cards := make([]*pagination.Card, len(p.Slots))
	for i, s := range p.Slots {
		if !s.Empty() {
			c := pagination.Compose(*s.Bill, inst)
			cards[i] = &c
		}
	}

	// Each grid row is as tall as its tallest card.
	top := 1
	for r := 0; r < p.Rows; r++ {
		height := 0
		for c := 0; c < pagination.Columns; c++ {
			if card := cards[r*pagination.Columns+c]; card != nil {
				height = max(height, cardHeight(*card))
			}
		}
		for c := 0; c < pagination.Columns; c++ {
			if card := cards[r*pagination.Columns+c]; card != nil {
				w.card(*card, top, 1+c*(blockCols+gutter))
			}
		}
		top += height + 1
	}
	if w.err != nil {
		return w.err
	}

	for c := 0; c < pagination.Columns; c++ {
		left := 1 + c*(blockCols+gutter)
		first, _ := excelize.ColumnNumberToName(left)
		last, _ := excelize.ColumnNumberToName(left + blockCols - 1)
		if err := w.f.SetColWidth(w.sheet, first, last, 16); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}

func cardHeight(c pagination.Card) int {
	// header, blank, identity, blank, items heading, items, summary
	return len(c.Header) + 1 + len(c.Identity) + 1 + 1 + len(c.Items) + len(c.Summary)
}

func (w *sheetWriter) card(c pagination.Card, row, col int) {
	for _, line := range c.Header {
		w.set(row, col, line, w.title)
		w.merge(row, col, row, col+blockCols-1)
		row++
	}
	row++

	for _, line := range c.Identity {
		w.set(row, col, line[0].Key, w.bold)
		w.set(row, col+1, line[0].Value, 0)
		w.set(row, col+2, line[1].Key, w.bold)
		w.set(row, col+3, line[1].Value, 0)
		row++
	}
	row++

	w.set(row, col, "Fee", w.bold)
	w.set(row, col+blockCols-1, "Amount", w.bold)
	row++
	for _, it := range c.Items {
		w.set(row, col, it.Key, 0)
		w.set(row, col+blockCols-1, it.Value, 0)
		row++
	}
	for _, s := range c.Summary {
		w.set(row, col, s.Key, w.bold)
		w.set(row, col+blockCols-1, s.Value, w.bold)
		row++
	}
}

func (w *sheetWriter) set(row, col int, value string, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = fmt.Errorf("setting %s: %w", cell, err)
		return
	}
	if style != 0 {
		if err := w.f.SetCellStyle(w.sheet, cell, cell, style); err != nil {
			w.err = fmt.Errorf("styling %s: %w", cell, err)
		}
	}
}

func (w *sheetWriter) merge(r1, c1, r2, c2 int) {
	if w.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		w.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.MergeCell(w.sheet, from, to); err != nil {
		w.err = fmt.Errorf("merging %s:%s: %w", from, to, err)
	}
}
