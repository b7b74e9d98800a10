// Package store is the terminal's global state: the session, the reference
// collections loaded from /bootstrap and every action that changes them.
//
// Each write action either patches the one record the backend returned or
// invalidates a set of collections; actionPolicy is the single table that
// says which.
package store

import (
	"context"
	"net/url"

	"tokoku/client/internal/domain"
)

// Backend is the REST API as the store uses it. *httpapi.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, in domain.LoginRequest) (domain.LoginResponse, error)
	Me(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (domain.User, error)
	ChangePassword(ctx context.Context, in domain.PasswordChange) error
	Bootstrap(ctx context.Context) (domain.Bootstrap, error)

	ListProducts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	BulkCreateProducts(ctx context.Context, in []domain.ProductInput) ([]domain.Product, error)
	BulkDeleteProducts(ctx context.Context, ids []string) error
	AddStock(ctx context.Context, id string, in domain.AddStockRequest) (domain.Product, error)
	StockCard(ctx context.Context, id string, q domain.ListQuery) (domain.Page[domain.StockCardEntry], error)
	ProductByBarcode(ctx context.Context, code string) (domain.BarcodeLookup, error)
	SearchProductsByName(ctx context.Context, name string) ([]domain.Product, error)
	ProductSuggestions(ctx context.Context, query string) ([]domain.ProductSuggestion, error)
	ImportProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error)

	ListCustomers(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Customer], error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	CreateCustomer(ctx context.Context, in domain.CustomerInput) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in domain.CustomerInput) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	CustomerDebts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Customer], error)
	PayCustomerDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Customer, error)
	SendCustomerEmail(ctx context.Context, id string, in domain.MessageRequest) error
	BulkSendCustomerEmail(ctx context.Context, in domain.MessageRequest) error
	EmailQuota(ctx context.Context) (domain.EmailQuota, error)
	SendCustomerWhatsApp(ctx context.Context, id string, in domain.MessageRequest) error
	BulkSendCustomerWhatsApp(ctx context.Context, in domain.MessageRequest) error

	ListDistributors(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Distributor], error)
	CreateDistributor(ctx context.Context, in domain.DistributorInput) (domain.Distributor, error)
	UpdateDistributor(ctx context.Context, id string, in domain.DistributorInput) (domain.Distributor, error)
	DeleteDistributor(ctx context.Context, id string) error
	BulkDeleteDistributors(ctx context.Context, ids []string) error
	DistributorDebts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Distributor], error)
	PayDistributorDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Distributor, error)

	ListPurchaseOrders(ctx context.Context, q domain.ListQuery) (domain.Page[domain.PurchaseOrder], error)
	CreatePurchaseOrder(ctx context.Context, in domain.PurchaseOrderInput) (domain.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, id string, in domain.PurchaseOrderReceipt) (domain.PurchaseOrder, error)

	CreateTransaction(ctx context.Context, in domain.TransactionRequest) (domain.Transaction, error)
	ListTransactions(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Transaction], error)
	GetTransaction(ctx context.Context, invoiceNumber string) (domain.Transaction, error)

	CreateRetur(ctx context.Context, kind string, in domain.ReturInput) (domain.Retur, error)
	ListReturs(ctx context.Context, kind string, q domain.ListQuery) (domain.Page[domain.Retur], error)
	ApproveSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error)
	RejectSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error)

	Report(ctx context.Context, from, to string) (domain.Report, error)
	Opname(ctx context.Context, in domain.OpnameRequest) (domain.OpnameResult, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	TransferStock(ctx context.Context, in domain.StockTransfer) error
	Export(ctx context.Context, kind string, query url.Values) (domain.Export, error)

	StoreInfo(ctx context.Context) (domain.StoreInfo, error)
	StoreName(ctx context.Context) (string, error)
	UpdateStoreInfo(ctx context.Context, in domain.StoreInfo) (domain.StoreInfo, error)
}
