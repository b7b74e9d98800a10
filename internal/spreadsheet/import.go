// Package spreadsheet reads the product import template and inspects
// exported workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/format"
	"tokoku/client/internal/poserr"
)

// Columns is the import template header, in template order.
var Columns = []string{"sku", "name", "unit", "conversion", "price", "stock", "barcode"}

var requiredColumns = []string{"sku", "name", "unit", "price"}

// ReadProductImport parses the first sheet of an import workbook. Columns are
// matched by header name, so their order does not matter. Blank rows are
// skipped; every bad row is reported in the error details keyed by
// "row <n>".
func ReadProductImport(r io.Reader) ([]domain.ProductImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, poserr.Wrap(poserr.CodeValidation, err, "file Excel tidak dapat dibaca")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, poserr.New(poserr.CodeValidation, "file Excel tidak memiliki sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, poserr.Wrap(poserr.CodeValidation, err, "sheet tidak dapat dibaca")
	}
	if len(rows) == 0 {
		return nil, poserr.New(poserr.CodeValidation, "file Excel kosong")
	}

	index := headerIndex(rows[0])
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, poserr.Newf(poserr.CodeValidation, "kolom wajib tidak ada: %s", strings.Join(missing, ", "))
	}

	out := make([]domain.ProductImportRow, 0, len(rows)-1)
	problems := map[string]string{}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := i + 2
		parsed, err := parseRow(row, index)
		if err == nil {
			err = domain.Validate(parsed)
		}
		if err != nil {
			problems[fmt.Sprintf("row %d", line)] = describe(err)
			continue
		}
		out = append(out, parsed)
	}
	if len(problems) > 0 {
		return nil, poserr.Newf(poserr.CodeValidation, "%d baris tidak valid", len(problems)).WithDetails(problems)
	}
	if len(out) == 0 {
		return nil, poserr.New(poserr.CodeValidation, "file impor kosong")
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; key != "" && !seen {
			index[key] = i
		}
	}
	return index
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, index map[string]int) (domain.ProductImportRow, error) {
	out := domain.ProductImportRow{
		SKU:        cell(row, index, "sku"),
		Name:       cell(row, index, "name"),
		Unit:       cell(row, index, "unit"),
		Conversion: 1,
		Barcode:    cell(row, index, "barcode"),
	}
	var err error
	if raw := cell(row, index, "conversion"); raw != "" {
		if out.Conversion, err = strconv.Atoi(raw); err != nil {
			return out, fmt.Errorf("conversion %q is not a whole number", raw)
		}
	}
	if raw := cell(row, index, "stock"); raw != "" {
		if out.Stock, err = strconv.Atoi(raw); err != nil {
			return out, fmt.Errorf("stock %q is not a whole number", raw)
		}
	}
	if out.Price, err = format.ParseAmount(cell(row, index, "price")); err != nil {
		return out, fmt.Errorf("price: %s", poserr.UserMessage(err))
	}
	if out.Price.IsNegative() {
		return out, fmt.Errorf("price must not be negative")
	}
	return out, nil
}

func describe(err error) string {
	typed := poserr.As(err)
	if typed == nil || len(typed.Details()) == 0 {
		return poserr.UserMessage(err)
	}
	parts := make([]string, 0, len(typed.Details()))
	for _, col := range Columns {
		if msg, ok := typed.Details()[col]; ok {
			parts = append(parts, col+": "+msg)
		}
	}
	if len(parts) == 0 {
		return poserr.UserMessage(err)
	}
	return strings.Join(parts, "; ")
}

// WriteTemplate writes an empty import workbook with the header row and one
// example line.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	example := []any{"SKU-MIE-01", "Mie Goreng Instan", "pcs", 1, 3500, 0, "8991002100015"}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}
