package spreadsheet

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"tokoku/client/internal/poserr"
)

type Sheet struct {
	Name string
	// Rows excludes the header row.
	Rows   int
	Header []string
}

type Summary struct {
	Sheets []Sheet
}

func (s Summary) TotalRows() int {
	n := 0
	for _, sh := range s.Sheets {
		n += sh.Rows
	}
	return n
}

// Summarize opens a downloaded export and counts the data rows per sheet.
func Summarize(data []byte) (Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Summary{}, poserr.Wrap(poserr.CodeValidation, err, "file ekspor tidak dapat dibaca")
	}
	defer f.Close()

	var out Summary
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return Summary{}, poserr.Wrap(poserr.CodeValidation, err, "sheet "+name+" tidak dapat dibaca")
		}
		sh := Sheet{Name: name}
		if len(rows) > 0 {
			sh.Header = rows[0]
			for _, row := range rows[1:] {
				if !blank(row) {
					sh.Rows++
				}
			}
		}
		out.Sheets = append(out.Sheets, sh)
	}
	return out, nil
}
