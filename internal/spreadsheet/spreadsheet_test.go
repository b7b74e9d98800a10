package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tokoku/client/internal/poserr"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadProductImport(t *testing.T) {
	buf := workbook(t,
		[]any{"Name", "SKU", "Unit", "Price", "Conversion", "Stock", "Barcode"},
		[]any{"Mie Goreng Instan", "SKU-MIE-01", "pcs", "3.500", 1, 120, "8991002100015"},
		[]any{},
		[]any{"Telur Ayam", "SKU-TLR-01", "kg", 28000, "", "", ""},
	)

	rows, err := ReadProductImport(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SKU-MIE-01", rows[0].SKU)
	assert.Equal(t, "Mie Goreng Instan", rows[0].Name)
	assert.Equal(t, 120, rows[0].Stock)
	assert.Equal(t, "3500", rows[0].Price.String())
	assert.Equal(t, "8991002100015", rows[0].Barcode)

	assert.Equal(t, 1, rows[1].Conversion, "missing conversion defaults to the base unit")
	assert.Equal(t, 0, rows[1].Stock)
}

func TestReadProductImportReportsBadRows(t *testing.T) {
	buf := workbook(t,
		[]any{"sku", "name", "unit", "conversion", "price", "stock"},
		[]any{"SKU-1", "", "pcs", 1, 1000, 1},
		[]any{"SKU-2", "Gula", "kg", "dua", 1000, 1},
		[]any{"SKU-3", "Kopi", "pcs", 1, 2000, 4},
	)

	_, err := ReadProductImport(buf)
	require.Error(t, err)
	typed := poserr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, poserr.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details()["row 2"], "name")
	assert.Contains(t, typed.Details()["row 3"], "conversion")
	assert.NotContains(t, typed.Details(), "row 4")
}

func TestReadProductImportMissingColumns(t *testing.T) {
	buf := workbook(t, []any{"sku", "name"}, []any{"SKU-1", "Gula"})

	_, err := ReadProductImport(buf)
	require.Error(t, err)
	assert.Contains(t, poserr.UserMessage(err), "unit")
	assert.Contains(t, poserr.UserMessage(err), "price")
}

func TestReadProductImportRejectsGarbage(t *testing.T) {
	_, err := ReadProductImport(bytes.NewBufferString("not a workbook"))
	require.Error(t, err)
	assert.True(t, poserr.Is(err, poserr.CodeValidation))
}

func TestTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	rows, err := ReadProductImport(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU-MIE-01", rows[0].SKU)

	summary, err := Summarize(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, summary.Sheets, 1)
	assert.Equal(t, 1, summary.TotalRows())
	assert.Equal(t, Columns, summary.Sheets[0].Header)
}

func TestSummarizeCountsEverySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Detail")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"invoice", "total"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"INV-1", 20000}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"INV-2", 15000}))
	require.NoError(t, f.SetSheetRow("Detail", "A1", &[]any{"invoice", "sku"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	summary, err := Summarize(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, summary.Sheets, 2)
	assert.Equal(t, 2, summary.Sheets[0].Rows)
	assert.Equal(t, 0, summary.Sheets[1].Rows)
	assert.Equal(t, 2, summary.TotalRows())
}
