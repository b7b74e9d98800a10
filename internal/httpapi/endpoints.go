package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/normalize"
)

func send[T any](ctx context.Context, c *Client, method, route, path string, query url.Values, body any) (T, error) {
	var out T
	err := c.do(ctx, call{method: method, route: route, path: path, query: query, body: body, out: &out})
	return out, err
}

func page[T any](ctx context.Context, c *Client, route string, q domain.ListQuery) (domain.Page[T], error) {
	p, err := send[domain.Page[T]](ctx, c, http.MethodGet, route, route, listQuery(q), nil)
	if err != nil {
		return domain.Page[T]{}, err
	}
	if p.Data == nil {
		p.Data = []T{}
	}
	return p, nil
}

func customerPage(p domain.Page[domain.Customer], err error) (domain.Page[domain.Customer], error) {
	if err != nil {
		return p, err
	}
	p.Data = normalize.Customers(p.Data)
	return p, nil
}

func productPage(p domain.Page[domain.Product], err error) (domain.Page[domain.Product], error) {
	if err != nil {
		return p, err
	}
	p.Data = normalize.Products(p.Data)
	return p, nil
}

// Auth

func (c *Client) Login(ctx context.Context, in domain.LoginRequest) (domain.LoginResponse, error) {
	resp, err := send[domain.LoginResponse](ctx, c, http.MethodPost, "/auth/login", "/auth/login", nil, in)
	if err != nil {
		return resp, err
	}
	resp.User = normalize.User(resp.User)
	return resp, nil
}

// Me is the session probe. A 401 here never clears the session by itself.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	u, err := send[domain.User](ctx, c, http.MethodGet, ProbePath, ProbePath, nil, nil)
	return normalize.User(u), err
}

func (c *Client) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (domain.User, error) {
	u, err := send[domain.User](ctx, c, http.MethodPut, "/auth/profile", "/auth/profile", nil, in)
	return normalize.User(u), err
}

func (c *Client) ChangePassword(ctx context.Context, in domain.PasswordChange) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/auth/change-password", path: "/auth/change-password", body: in})
}

// Bootstrap

func (c *Client) Bootstrap(ctx context.Context) (domain.Bootstrap, error) {
	b, err := send[domain.Bootstrap](ctx, c, http.MethodGet, "/bootstrap", "/bootstrap", nil, nil)
	if err != nil {
		return domain.Bootstrap{}, err
	}
	return normalize.Bootstrap(b), nil
}

// Products

func (c *Client) ListProducts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	return productPage(page[domain.Product](ctx, c, "/products", q))
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := send[domain.Product](ctx, c, http.MethodGet, "/products/:id", "/products/"+escape(id), nil, nil)
	return normalize.Product(p), err
}

func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	p, err := send[domain.Product](ctx, c, http.MethodPost, "/products", "/products", nil, in)
	return normalize.Product(p), err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	p, err := send[domain.Product](ctx, c, http.MethodPut, "/products/:id", "/products/"+escape(id), nil, in)
	return normalize.Product(p), err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/products/:id", path: "/products/" + escape(id)})
}

func (c *Client) BulkCreateProducts(ctx context.Context, in []domain.ProductInput) ([]domain.Product, error) {
	list, err := send[[]domain.Product](ctx, c, http.MethodPost, "/products/bulk", "/products/bulk", nil, in)
	return normalize.Products(list), err
}

func (c *Client) BulkDeleteProducts(ctx context.Context, ids []string) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/products/bulk-delete", path: "/products/bulk-delete", body: domain.BulkIDsRequest{IDs: ids}})
}

func (c *Client) AddStock(ctx context.Context, id string, in domain.AddStockRequest) (domain.Product, error) {
	p, err := send[domain.Product](ctx, c, http.MethodPost, "/products/:id/add-stock", "/products/"+escape(id)+"/add-stock", nil, in)
	return normalize.Product(p), err
}

func (c *Client) StockCard(ctx context.Context, id string, q domain.ListQuery) (domain.Page[domain.StockCardEntry], error) {
	p, err := send[domain.Page[domain.StockCardEntry]](ctx, c, http.MethodGet, "/products/:id/stock-card", "/products/"+escape(id)+"/stock-card", listQuery(q), nil)
	if err == nil && p.Data == nil {
		p.Data = []domain.StockCardEntry{}
	}
	return p, err
}

func (c *Client) ProductByBarcode(ctx context.Context, code string) (domain.BarcodeLookup, error) {
	l, err := send[domain.BarcodeLookup](ctx, c, http.MethodGet, "/products/by-barcode/:code", "/products/by-barcode/"+escape(code), nil, nil)
	l.Product = normalize.Product(l.Product)
	return l, err
}

func (c *Client) SearchProductsByName(ctx context.Context, name string) ([]domain.Product, error) {
	list, err := send[[]domain.Product](ctx, c, http.MethodGet, "/products/search-by-name", "/products/search-by-name", url.Values{"name": {name}}, nil)
	return normalize.Products(list), err
}

func (c *Client) ProductSuggestions(ctx context.Context, query string) ([]domain.ProductSuggestion, error) {
	return send[[]domain.ProductSuggestion](ctx, c, http.MethodGet, "/products/suggestions", "/products/suggestions", url.Values{"q": {query}}, nil)
}

func (c *Client) ImportProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error) {
	return send[domain.ProductImportResult](ctx, c, http.MethodPost, "/products/import", "/products/import", nil, map[string]any{"rows": rows})
}

// Customers

func (c *Client) ListCustomers(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Customer], error) {
	return customerPage(page[domain.Customer](ctx, c, "/customers", q))
}

func (c *Client) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	cu, err := send[domain.Customer](ctx, c, http.MethodGet, "/customers/:id", "/customers/"+escape(id), nil, nil)
	return normalize.Customer(cu), err
}

func (c *Client) CreateCustomer(ctx context.Context, in domain.CustomerInput) (domain.Customer, error) {
	cu, err := send[domain.Customer](ctx, c, http.MethodPost, "/customers", "/customers", nil, in)
	return normalize.Customer(cu), err
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, in domain.CustomerInput) (domain.Customer, error) {
	cu, err := send[domain.Customer](ctx, c, http.MethodPut, "/customers/:id", "/customers/"+escape(id), nil, in)
	return normalize.Customer(cu), err
}

func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/customers/:id", path: "/customers/" + escape(id)})
}

func (c *Client) CustomerDebts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Customer], error) {
	return customerPage(page[domain.Customer](ctx, c, "/customers/debt", q))
}

func (c *Client) PayCustomerDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Customer, error) {
	cu, err := send[domain.Customer](ctx, c, http.MethodPost, "/customers/:id/pay-debt", "/customers/"+escape(id)+"/pay-debt", nil, in)
	return normalize.Customer(cu), err
}

func (c *Client) SendCustomerEmail(ctx context.Context, id string, in domain.MessageRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/customers/:id/send-email", path: "/customers/" + escape(id) + "/send-email", body: in})
}

func (c *Client) BulkSendCustomerEmail(ctx context.Context, in domain.MessageRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/customers/bulk-send-email", path: "/customers/bulk-send-email", body: in})
}

func (c *Client) EmailQuota(ctx context.Context) (domain.EmailQuota, error) {
	return send[domain.EmailQuota](ctx, c, http.MethodGet, "/customers/email-quota", "/customers/email-quota", nil, nil)
}

func (c *Client) SendCustomerWhatsApp(ctx context.Context, id string, in domain.MessageRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/customers/:id/send-whatsapp", path: "/customers/" + escape(id) + "/send-whatsapp", body: in})
}

func (c *Client) BulkSendCustomerWhatsApp(ctx context.Context, in domain.MessageRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/customers/bulk-send-whatsapp", path: "/customers/bulk-send-whatsapp", body: in})
}

// Distributors

func (c *Client) ListDistributors(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Distributor], error) {
	return page[domain.Distributor](ctx, c, "/distributors", q)
}

func (c *Client) CreateDistributor(ctx context.Context, in domain.DistributorInput) (domain.Distributor, error) {
	return send[domain.Distributor](ctx, c, http.MethodPost, "/distributors", "/distributors", nil, in)
}

func (c *Client) UpdateDistributor(ctx context.Context, id string, in domain.DistributorInput) (domain.Distributor, error) {
	return send[domain.Distributor](ctx, c, http.MethodPut, "/distributors/:id", "/distributors/"+escape(id), nil, in)
}

func (c *Client) DeleteDistributor(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/distributors/:id", path: "/distributors/" + escape(id)})
}

func (c *Client) BulkDeleteDistributors(ctx context.Context, ids []string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/distributors/bulk", path: "/distributors/bulk", body: domain.BulkIDsRequest{IDs: ids}})
}

func (c *Client) DistributorDebts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Distributor], error) {
	return page[domain.Distributor](ctx, c, "/distributors/debt", q)
}

func (c *Client) PayDistributorDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Distributor, error) {
	return send[domain.Distributor](ctx, c, http.MethodPost, "/distributors/:id/pay-debt", "/distributors/"+escape(id)+"/pay-debt", nil, in)
}

// Purchase orders

func (c *Client) ListPurchaseOrders(ctx context.Context, q domain.ListQuery) (domain.Page[domain.PurchaseOrder], error) {
	return page[domain.PurchaseOrder](ctx, c, "/purchase-orders", q)
}

func (c *Client) CreatePurchaseOrder(ctx context.Context, in domain.PurchaseOrderInput) (domain.PurchaseOrder, error) {
	return send[domain.PurchaseOrder](ctx, c, http.MethodPost, "/purchase-orders", "/purchase-orders", nil, in)
}

func (c *Client) ReceivePurchaseOrder(ctx context.Context, id string, in domain.PurchaseOrderReceipt) (domain.PurchaseOrder, error) {
	return send[domain.PurchaseOrder](ctx, c, http.MethodPost, "/purchase-orders/:id/receive", "/purchase-orders/"+escape(id)+"/receive", nil, in)
}

// Transactions

func (c *Client) CreateTransaction(ctx context.Context, in domain.TransactionRequest) (domain.Transaction, error) {
	t, err := send[domain.Transaction](ctx, c, http.MethodPost, "/transactions", "/transactions", nil, in)
	return normalize.Transaction(t), err
}

func (c *Client) ListTransactions(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Transaction], error) {
	p, err := page[domain.Transaction](ctx, c, "/transactions", q)
	if err != nil {
		return p, err
	}
	p.Data = normalize.Transactions(p.Data)
	return p, nil
}

func (c *Client) GetTransaction(ctx context.Context, invoiceNumber string) (domain.Transaction, error) {
	t, err := send[domain.Transaction](ctx, c, http.MethodGet, "/transactions/:invoiceNumber", "/transactions/"+escape(invoiceNumber), nil, nil)
	return normalize.Transaction(t), err
}

// Retur

const (
	ReturSales    = "penjualan"
	ReturPurchase = "pembelian"
)

func (c *Client) CreateRetur(ctx context.Context, kind string, in domain.ReturInput) (domain.Retur, error) {
	return send[domain.Retur](ctx, c, http.MethodPost, "/retur/"+kind, "/retur/"+kind, nil, in)
}

func (c *Client) ListReturs(ctx context.Context, kind string, q domain.ListQuery) (domain.Page[domain.Retur], error) {
	return page[domain.Retur](ctx, c, "/retur/"+kind, q)
}

func (c *Client) ApproveSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error) {
	return send[domain.Retur](ctx, c, http.MethodPut, "/retur/penjualan/:id/approve", "/retur/penjualan/"+escape(id)+"/approve", nil, in)
}

func (c *Client) RejectSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error) {
	return send[domain.Retur](ctx, c, http.MethodPut, "/retur/penjualan/:id/reject", "/retur/penjualan/"+escape(id)+"/reject", nil, in)
}

// Reports

func (c *Client) Report(ctx context.Context, from, to string) (domain.Report, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return send[domain.Report](ctx, c, http.MethodGet, "/reports", "/reports", q, nil)
}

func (c *Client) Opname(ctx context.Context, in domain.OpnameRequest) (domain.OpnameResult, error) {
	return send[domain.OpnameResult](ctx, c, http.MethodPost, "/reports/opname", "/reports/opname", nil, in)
}

// Warehouses

func (c *Client) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return send[[]domain.Warehouse](ctx, c, http.MethodGet, "/warehouses", "/warehouses", nil, nil)
}

func (c *Client) TransferStock(ctx context.Context, in domain.StockTransfer) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/warehouses/transfer", path: "/warehouses/transfer", body: in})
}

// Exports

const (
	ExportSales        = "sales"
	ExportProducts     = "products"
	ExportDebt         = "debt"
	ExportStockHistory = "stock-history"
)

// Export downloads one of the spreadsheet exports.
func (c *Client) Export(ctx context.Context, kind string, query url.Values) (domain.Export, error) {
	var out domain.Export
	err := c.do(ctx, call{method: http.MethodGet, route: "/export/" + kind, path: "/export/" + kind, query: query, raw: &out})
	if err == nil && out.FileName == "" {
		out.FileName = kind + ".xlsx"
	}
	return out, err
}

// Store profile

func (c *Client) StoreInfo(ctx context.Context) (domain.StoreInfo, error) {
	return send[domain.StoreInfo](ctx, c, http.MethodGet, "/store", "/store", nil, nil)
}

type storeName struct {
	Name string `json:"name"`
}

// StoreName is public and works before login.
func (c *Client) StoreName(ctx context.Context) (string, error) {
	out, err := send[storeName](ctx, c, http.MethodGet, "/store/name", "/store/name", nil, nil)
	return out.Name, err
}

func (c *Client) UpdateStoreInfo(ctx context.Context, in domain.StoreInfo) (domain.StoreInfo, error) {
	return send[domain.StoreInfo](ctx, c, http.MethodPut, "/store", "/store", nil, in)
}
