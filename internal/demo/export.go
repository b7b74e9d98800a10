package demo

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"

	"tokoku/client/internal/format"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// export renders one of the spreadsheet downloads.
func (d *data) export(kind string) ([]byte, string, error) {
	var (
		sheet string
		rows  [][]any
	)
	d.mu.RLock()
	switch kind {
	case "sales":
		sheet, rows = "Penjualan", d.salesRows()
	case "products":
		sheet, rows = "Produk", d.productRows()
	case "debt":
		sheet, rows = "Hutang", d.debtRows()
	case "stock-history":
		sheet, rows = "Riwayat Stok", d.stockRows()
	default:
		d.mu.RUnlock()
		return nil, "", errNotFound
	}
	d.mu.RUnlock()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, "", err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("%s-%s.xlsx", kind, d.now().UTC().Format("20060102"))
	return bytes.Clone(buf.Bytes()), name, nil
}

func (d *data) salesRows() [][]any {
	rows := [][]any{{"invoice", "tanggal", "tipe", "pelanggan", "subtotal", "diskon", "total", "dibayar", "kembalian"}}
	for _, invoice := range d.invoiceOrder {
		trx := d.transactions[invoice]
		rows = append(rows, []any{
			trx.InvoiceNumber,
			trx.CreatedAt.Format("2006-01-02 15:04"),
			trx.Type.Code,
			trx.CustomerID,
			trx.Subtotal.IntPart(),
			trx.Discount.IntPart(),
			trx.Total.IntPart(),
			trx.Paid.IntPart(),
			trx.Change.IntPart(),
		})
	}
	return rows
}

func (d *data) productRows() [][]any {
	rows := [][]any{{"sku", "nama", "stok", "stok (satuan)", "harga dasar"}}
	for _, p := range d.products {
		base, _ := p.BaseUnit()
		rows = append(rows, []any{p.SKU, p.Name, p.Stock, format.StockDisplay(p.Stock, p.Units), base.Price.IntPart()})
	}
	return rows
}

func (d *data) debtRows() [][]any {
	rows := [][]any{{"jenis", "nama", "hutang"}}
	for _, c := range d.customers {
		if c.Debt.IsPositive() {
			rows = append(rows, []any{"pelanggan", c.Name, c.Debt.IntPart()})
		}
	}
	for _, dist := range d.distributors {
		if dist.Debt.IsPositive() {
			rows = append(rows, []any{"distributor", dist.Name, dist.Debt.IntPart()})
		}
	}
	return rows
}

func (d *data) stockRows() [][]any {
	rows := [][]any{{"produk", "tipe", "jumlah", "sebelum", "sesudah", "referensi", "waktu"}}
	ids := make([]string, 0, len(d.stockHistory))
	for id := range d.stockHistory {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		name := id
		if i := d.productIndex(id); i >= 0 {
			name = d.products[i].Name
		}
		for _, e := range d.stockHistory[id] {
			rows = append(rows, []any{name, e.Type, e.Quantity, e.StockBefore, e.StockAfter, e.Reference, e.CreatedAt.Format("2006-01-02 15:04")})
		}
	}
	return rows
}
