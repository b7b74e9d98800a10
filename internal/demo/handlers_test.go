package demo

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/httpapi"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/sales"
	"tokoku/client/internal/session"
	"tokoku/client/internal/spreadsheet"
	"tokoku/client/internal/store"
)

// newTestServer builds the seeded backend with cheap password hashes.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Options{Secret: "test-secret-key", TokenTTL: time.Hour, Users: testUsers(t)})
	if err != nil {
		t.Fatalf("new demo server: %v", err)
	}
	return srv
}

type terminal struct {
	client   *httpapi.Client
	store    *store.Store
	register *sales.Register
}

// newTerminal wires the real client stack against a fresh demo backend and
// logs in as username.
func newTerminal(t *testing.T, username, password string) *terminal {
	t.Helper()
	ts := httptest.NewServer(newTestServer(t).Handler())
	t.Cleanup(ts.Close)

	var st *store.Store
	client := httpapi.New(ts.URL+APIPrefix, session.NewMemoryStore(),
		httpapi.WithUnauthorizedHandler(func(ctx context.Context, err error) { st.HandleUnauthorized(ctx, err) }))
	st = store.New(client, client.Sessions(), store.Options{})
	if _, err := st.Login(context.Background(), username, password, false); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	if !st.Loaded() {
		t.Fatalf("login %s did not load the master data", username)
	}

	return &terminal{client: client, store: st, register: sales.New(st, sales.Options{})}
}

func rp(v int64) domain.Money { return decimal.NewFromInt(v) }

func productBySKU(t *testing.T, st *store.Store, sku string) domain.Product {
	t.Helper()
	for _, p := range st.Products() {
		if p.SKU == sku {
			return p
		}
	}
	t.Fatalf("product %s not loaded", sku)
	return domain.Product{}
}

func mustMoney(t *testing.T, what string, got domain.Money, want int64) {
	t.Helper()
	if !got.Equal(rp(want)) {
		t.Fatalf("%s: expected %d, got %s", what, want, got)
	}
}

func TestCashSaleThroughScanner(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()
	before := productBySKU(t, term.store, "SKU-MIE-01").Stock

	for i := 0; i < 2; i++ {
		if err := term.register.Scan(ctx, "8991002100015"); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	term.register.SetTendered(rp(10000))

	receipt, err := term.register.PayFull(ctx)
	if err != nil {
		t.Fatalf("pay full: %v", err)
	}
	mustMoney(t, "total", receipt.Transaction.Total, 7000)
	mustMoney(t, "change", receipt.CashReturned, 3000)
	if receipt.Transaction.Type.Code != domain.TransactionLunas {
		t.Fatalf("expected LUNAS, got %q", receipt.Transaction.Type.Code)
	}

	if got := productBySKU(t, term.store, "SKU-MIE-01").Stock; got != before-2 {
		t.Fatalf("the sale should refresh the product list: stock %d, want %d", got, before-2)
	}
}

func TestPackBarcodeSellsInBaseUnits(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()
	before := productBySKU(t, term.store, "SKU-AIR-01").Stock

	if err := term.register.Scan(ctx, "18991002100084"); err != nil {
		t.Fatalf("scan pack barcode: %v", err)
	}
	lines := term.register.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].UnitName != "dus" || lines[0].Conversion != 24 {
		t.Fatalf("expected dus x24, got %s x%d", lines[0].UnitName, lines[0].Conversion)
	}

	term.register.SetTendered(rp(100000))
	if _, err := term.register.PayFull(ctx); err != nil {
		t.Fatalf("pay full: %v", err)
	}
	if got := productBySKU(t, term.store, "SKU-AIR-01").Stock; got != before-24 {
		t.Fatalf("expected stock %d, got %d", before-24, got)
	}
}

func TestScanOutOfStockAndUnknownBarcode(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()

	if err := term.register.Scan(ctx, "8991002100107"); err == nil {
		t.Fatalf("expected an out-of-stock error")
	}
	if msg, _ := term.register.Banner().Current(); msg.Text != "Stok tidak tersedia" {
		t.Fatalf("unexpected banner %q", msg.Text)
	}

	err := term.register.Scan(ctx, "0000000000000")
	if !poserr.Is(err, poserr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(term.register.Lines()); n != 0 {
		t.Fatalf("expected an empty cart, got %d lines", n)
	}
}

func TestPartialPaymentBooksDebt(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()

	if err := term.register.AddProduct("prd-2", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if err := term.register.SelectCustomer("cus-2"); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	term.register.SetTendered(rp(6500))

	if _, err := term.register.PayPartial(ctx); err != nil {
		t.Fatalf("pay partial: %v", err)
	}

	c, ok := term.store.Customer("cus-2")
	if !ok {
		t.Fatalf("customer cus-2 not loaded")
	}
	// 15000 + (26500 - 6500)
	mustMoney(t, "debt", c.Debt, 35000)
}

func TestCreditRefusedForWalkIn(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")

	if err := term.register.AddProduct("prd-1", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if err := term.register.SelectCustomer("cus-1"); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	_, err := term.register.PayCredit(context.Background())
	if !poserr.Is(err, poserr.CodePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestObjectCustomerTypeAllowsCredit(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")

	c, ok := term.store.Customer("cus-3")
	if !ok || !c.CanBon {
		t.Fatalf("canBon should come from the object form of the type: %+v", c)
	}

	if err := term.register.AddProduct("prd-1", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if err := term.register.SelectCustomer("cus-3"); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	if _, err := term.register.PayCredit(context.Background()); err != nil {
		t.Fatalf("pay credit: %v", err)
	}

	c, _ = term.store.Customer("cus-3")
	mustMoney(t, "debt", c.Debt, 3500)
}

func TestChangeAppliedToDebtEndToEnd(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()

	if err := term.register.AddProduct("prd-1", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if err := term.register.SelectCustomer("cus-2"); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	term.register.SetTendered(rp(20000))
	term.register.SetChangeToDebt(true)

	receipt, err := term.register.PayFull(ctx)
	if err != nil {
		t.Fatalf("pay full: %v", err)
	}
	if receipt.DebtPaymentErr != nil {
		t.Fatalf("debt payment failed: %v", receipt.DebtPaymentErr)
	}
	mustMoney(t, "debt applied", receipt.DebtApplied, 15000)
	mustMoney(t, "cash returned", receipt.CashReturned, 1500)

	c, _ := term.store.Customer("cus-2")
	if !c.Debt.IsZero() {
		t.Fatalf("expected the debt to be settled, got %s", c.Debt)
	}
}

func TestTransactionIdempotencyKey(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()
	req := domain.TransactionRequest{
		Type:           domain.TransactionLunas,
		Items:          []domain.TransactionItem{{ProductID: "prd-5", UnitName: "pcs", Quantity: 3}},
		Discount:       decimal.Zero,
		Paid:           rp(10000),
		IdempotencyKey: "sale-fixed",
	}

	first, err := term.client.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := term.client.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.InvoiceNumber != second.InvoiceNumber {
		t.Fatalf("replay created a new invoice: %s vs %s", first.InvoiceNumber, second.InvoiceNumber)
	}

	p, err := term.client.GetProduct(ctx, "prd-5")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock != 197 {
		t.Fatalf("stock should move once, got %d", p.Stock)
	}
}

func TestInsufficientStockIsAPIError(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	_, err := term.client.CreateTransaction(context.Background(), domain.TransactionRequest{
		Type:  domain.TransactionLunas,
		Items: []domain.TransactionItem{{ProductID: "prd-4", UnitName: "pcs", Quantity: 99}},
		Paid:  rp(10_000_000),
	})
	typed := poserr.As(err)
	if typed == nil {
		t.Fatalf("expected a typed error, got %v", err)
	}
	if typed.Status() != 409 {
		t.Fatalf("expected status 409, got %d", typed.Status())
	}
	if !strings.Contains(typed.Message(), "Roti Tawar") {
		t.Fatalf("message should name the product: %q", typed.Message())
	}
}

func TestSalesReturApprovalRestocks(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()

	if err := term.register.AddProduct("prd-3", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	term.register.SetTendered(rp(20000))
	receipt, err := term.register.PayFull(ctx)
	if err != nil {
		t.Fatalf("pay full: %v", err)
	}
	afterSale := productBySKU(t, term.store, "SKU-SUSU-01").Stock

	ret, err := term.store.CreateRetur(ctx, httpapi.ReturSales, domain.ReturInput{
		InvoiceNumber: receipt.Transaction.InvoiceNumber,
		Reason:        "kemasan bocor",
		Items:         []domain.ReturItem{{ProductID: "prd-3", UnitName: "pcs", Quantity: 1, Price: rp(18900)}},
	})
	if err != nil {
		t.Fatalf("create retur: %v", err)
	}
	if ret.Status != domain.ReturStatusPending {
		t.Fatalf("expected pending, got %s", ret.Status)
	}
	if got := productBySKU(t, term.store, "SKU-SUSU-01").Stock; got != afterSale {
		t.Fatalf("a pending retur must not restock: %d vs %d", got, afterSale)
	}

	ret, err = term.store.ApproveSalesRetur(ctx, ret.ID, domain.ReturDecision{})
	if err != nil {
		t.Fatalf("approve retur: %v", err)
	}
	if ret.Status != domain.ReturStatusApproved {
		t.Fatalf("expected approved, got %s", ret.Status)
	}
	if got := productBySKU(t, term.store, "SKU-SUSU-01").Stock; got != afterSale+1 {
		t.Fatalf("expected stock %d after approval, got %d", afterSale+1, got)
	}
}

func TestReceivePurchaseOrderUpdatesStockAndDebt(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()
	if n := len(term.store.PendingPOs()); n != 1 {
		t.Fatalf("expected one pending PO, got %d", n)
	}
	before := productBySKU(t, term.store, "SKU-MIE-01").Stock

	if _, err := term.store.ReceivePurchaseOrder(ctx, "po-1", domain.PurchaseOrderReceipt{Paid: rp(52000)}); err != nil {
		t.Fatalf("receive PO: %v", err)
	}

	if n := len(term.store.PendingPOs()); n != 0 {
		t.Fatalf("expected no pending PO, got %d", n)
	}
	if got := productBySKU(t, term.store, "SKU-MIE-01").Stock; got != before+80 {
		t.Fatalf("expected stock %d, got %d", before+80, got)
	}
	d, ok := term.store.Distributor("dst-1")
	if !ok {
		t.Fatalf("distributor dst-1 not loaded")
	}
	// 250000 + 252000 - 52000
	mustMoney(t, "distributor debt", d.Debt, 450000)
}

func TestTransferBetweenWarehouses(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()

	if err := term.store.TransferStock(ctx, domain.StockTransfer{
		ProductID: "prd-7", FromWarehouseID: "wh-1", ToWarehouseID: "wh-2", Quantity: 10,
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := productBySKU(t, term.store, "SKU-TEH-01").Stock; got != 30 {
		t.Fatalf("expected total stock 30, got %d", got)
	}

	if err := term.store.TransferStock(ctx, domain.StockTransfer{
		ProductID: "prd-7", FromWarehouseID: "wh-2", ToWarehouseID: "wh-1", Quantity: 11,
	}); err == nil {
		t.Fatalf("expected the over-transfer to fail")
	}
}

func TestOpnameAndReport(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()

	res, err := term.store.SubmitOpname(ctx, domain.OpnameRequest{
		Note:  "hitung bulanan",
		Items: []domain.OpnameItem{{ProductID: "prd-9", ActualStock: 20}, {ProductID: "prd-6", ActualStock: 60}},
	})
	if err != nil {
		t.Fatalf("submit opname: %v", err)
	}
	if res.Adjustments != 1 {
		t.Fatalf("expected one adjustment, got %d", res.Adjustments)
	}
	if got := productBySKU(t, term.store, "SKU-KERIPIK-01").Stock; got != 20 {
		t.Fatalf("expected stock 20, got %d", got)
	}

	if err := term.register.AddProduct("prd-1", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	term.register.SetTendered(rp(5000))
	if _, err := term.register.PayFull(ctx); err != nil {
		t.Fatalf("pay full: %v", err)
	}

	rep, err := term.store.FetchReport(ctx, "", "")
	if err != nil {
		t.Fatalf("fetch report: %v", err)
	}
	if rep.Transactions != 1 {
		t.Fatalf("expected one transaction, got %d", rep.Transactions)
	}
	mustMoney(t, "net sales", rep.NetSales, 3500)
	mustMoney(t, "cash collected", rep.CashCollected, 3500)
}

func TestExportDownloadsWorkbook(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()

	if err := term.register.AddProduct("prd-1", "", ""); err != nil {
		t.Fatalf("add product: %v", err)
	}
	term.register.SetTendered(rp(5000))
	if _, err := term.register.PayFull(ctx); err != nil {
		t.Fatalf("pay full: %v", err)
	}

	export, err := term.store.Export(ctx, httpapi.ExportSales, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(export.FileName, "sales-") {
		t.Fatalf("unexpected file name %q", export.FileName)
	}

	summary, err := spreadsheet.Summarize(export.Data)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summary.Sheets) != 1 || summary.Sheets[0].Name != "Penjualan" {
		t.Fatalf("expected a single Penjualan sheet, got %+v", summary.Sheets)
	}
	if summary.TotalRows() != 1 {
		t.Fatalf("expected one row, got %d", summary.TotalRows())
	}
}

func TestProductListPagination(t *testing.T) {
	term := newTerminal(t, "cashier", "cashier123")
	ctx := context.Background()

	page, err := term.client.ListProducts(ctx, domain.ListQuery{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Data) != 5 || page.Pagination.Total != 12 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected page: %d rows, total %d, pages %d",
			len(page.Data), page.Pagination.Total, page.Pagination.TotalPages)
	}

	page, err = term.client.ListProducts(ctx, domain.ListQuery{Search: "sachet"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected two sachet products, got %d", len(page.Data))
	}
}

func TestImportCreatesProducts(t *testing.T) {
	term := newTerminal(t, "admin", "admin123")
	ctx := context.Background()

	res, err := term.store.ImportProducts(ctx, []domain.ProductImportRow{
		{SKU: "SKU-BERAS-01", Name: "Beras 5kg", Unit: "karung", Conversion: 1, Price: rp(72000), Stock: 10, Barcode: "8991002100200"},
		{SKU: "SKU-MIE-01", Name: "Mie Goreng Instan", Unit: "pcs", Conversion: 1, Price: rp(3600)},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 || res.Updated != 1 {
		t.Fatalf("expected 1 created and 1 updated, got %d/%d", res.Created, res.Updated)
	}

	found, err := term.store.LookupBarcode(ctx, "8991002100200")
	if err != nil {
		t.Fatalf("lookup barcode: %v", err)
	}
	if found.Product.Name != "Beras 5kg" || found.StockFromSupplier != 10 {
		t.Fatalf("unexpected lookup result: %s stock %d", found.Product.Name, found.StockFromSupplier)
	}
}
