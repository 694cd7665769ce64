// Package sheet reads the three workbook containers annexes arrive in
// behind one row-oriented interface: xlsx/xlsm through excelize, legacy
// xls through extrame/xls, and xlsb through a minimal record parser.
package sheet

import (
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Reader gives uniform access to a workbook regardless of container.
type Reader interface {
	// SheetNames lists the visible sheet catalog in workbook order.
	SheetNames() []string
	// Rows returns up to maxRows rows of a sheet as trimmed string cells;
	// maxRows <= 0 means no cap.
	Rows(sheet string, maxRows int) ([][]string, error)
	Close() error
}

// Open sniffs the container format and returns the matching reader.
func Open(path string) (Reader, error) {
	switch Detect(path) {
	case FormatXLSX:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
		return &xlsxReader{f: f}, nil
	case FormatXLSB:
		return openXLSB(path)
	case FormatXLS:
		wb, err := xls.Open(path, "utf-8")
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
		return &xlsReader{wb: wb}, nil
	default:
		return nil, fmt.Errorf("unsupported workbook format: %s", path)
	}
}

type xlsxReader struct {
	f *excelize.File
}

func (r *xlsxReader) SheetNames() []string {
	return r.f.GetSheetList()
}

func (r *xlsxReader) Rows(sheet string, maxRows int) ([][]string, error) {
	rows, err := r.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows, nil
}

func (r *xlsxReader) Close() error {
	return r.f.Close()
}

type xlsReader struct {
	wb *xls.WorkBook
}

func (r *xlsReader) SheetNames() []string {
	names := make([]string, 0, r.wb.NumSheets())
	for i := 0; i < r.wb.NumSheets(); i++ {
		if s := r.wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

func (r *xlsReader) Rows(sheet string, maxRows int) ([][]string, error) {
	var ws *xls.WorkSheet
	for i := 0; i < r.wb.NumSheets(); i++ {
		if s := r.wb.GetSheet(i); s != nil && s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	last := int(ws.MaxRow)
	if maxRows > 0 && last >= maxRows {
		last = maxRows - 1
	}

	rows := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (r *xlsReader) Close() error {
	return nil
}
