package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an exact rupiah amount. The backend speaks JSON numbers.
type Money = decimal.Decimal

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Unit struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" validate:"required"`
	Conversion int    `json:"conversion" validate:"min=1"`
	Price      Money  `json:"price"`
}

type Barcode struct {
	Barcode string `json:"barcode" validate:"required"`
	UnitID  string `json:"unitId,omitempty"`
}

type ProductDistributor struct {
	DistributorID string    `json:"distributorId" validate:"required"`
	IsDefault     bool      `json:"isDefault"`
	Barcodes      []Barcode `json:"barcodes" validate:"dive"`
}

type Product struct {
	ID           string               `json:"id"`
	SKU          string               `json:"sku"`
	Name         string               `json:"name"`
	Stock        int                  `json:"stock"`
	MinStock     int                  `json:"minStock"`
	Units        []Unit               `json:"units"`
	Distributors []ProductDistributor `json:"distributors"`
}

// SortUnits puts the base unit (conversion 1) first, then ascending conversion.
func (p *Product) SortUnits() {
	sort.SliceStable(p.Units, func(i, j int) bool {
		return p.Units[i].Conversion < p.Units[j].Conversion
	})
}

// BaseUnit returns the conversion-1 unit, if any.
func (p Product) BaseUnit() (Unit, bool) {
	for _, u := range p.Units {
		if u.Conversion == 1 {
			return u, true
		}
	}
	return Unit{}, false
}

func (p Product) UnitByName(name string) (Unit, bool) {
	for _, u := range p.Units {
		if strings.EqualFold(u.Name, name) {
			return u, true
		}
	}
	return Unit{}, false
}

func (p Product) UnitByID(id string) (Unit, bool) {
	for _, u := range p.Units {
		if u.ID != "" && u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// DefaultDistributor returns the distributor flagged as default.
func (p Product) DefaultDistributor() (ProductDistributor, bool) {
	for _, d := range p.Distributors {
		if d.IsDefault {
			return d, true
		}
	}
	return ProductDistributor{}, false
}

func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

type ProductInput struct {
	SKU          string               `json:"sku" validate:"required"`
	Name         string               `json:"name" validate:"required"`
	MinStock     int                  `json:"minStock" validate:"min=0"`
	Units        []Unit               `json:"units" validate:"required,min=1,dive"`
	Distributors []ProductDistributor `json:"distributors" validate:"dive"`
}

type ProductImportRow struct {
	SKU        string `json:"sku" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Unit       string `json:"unit" validate:"required"`
	Conversion int    `json:"conversion" validate:"min=1"`
	Price      Money  `json:"price"`
	Stock      int    `json:"stock" validate:"min=0"`
	Barcode    string `json:"barcode,omitempty"`
}

type ProductImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

type AddStockRequest struct {
	UnitID        string `json:"unitId,omitempty"`
	Quantity      int    `json:"quantity"`
	DistributorID string `json:"distributorId,omitempty"`
	Note          string `json:"note,omitempty"`
}

type StockCardEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stockBefore"`
	StockAfter  int       `json:"stockAfter"`
	Reference   string    `json:"reference,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ProductSuggestion struct {
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// BarcodeLookup is the resolution of one scanned code.
type BarcodeLookup struct {
	Product           Product `json:"product"`
	Unit              Unit    `json:"unit"`
	DistributorID     string  `json:"distributorId"`
	StockFromSupplier int     `json:"stockFromSupplier"`
}

type BulkIDsRequest struct {
	IDs []string `json:"ids"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    Lookup `json:"type"`
	Debt    Money  `json:"debt"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	// CanBon is derived at the read boundary; the backend never sends it.
	CanBon bool `json:"-"`
}

type CustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty"`
}

type DebtPayment struct {
	Amount Money  `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type DebtSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Debt Money  `json:"debt"`
}

type EmailQuota struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type MessageRequest struct {
	Subject string   `json:"subject,omitempty"`
	Message string   `json:"message"`
	IDs     []string `json:"ids,omitempty"`
}

type Distributor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Debt    Money  `json:"debt"`
}

type DistributorInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Warehouse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

type StockTransfer struct {
	ProductID       string `json:"productId" validate:"required"`
	FromWarehouseID string `json:"fromWarehouseId" validate:"required"`
	ToWarehouseID   string `json:"toWarehouseId" validate:"required,nefield=FromWarehouseID"`
	Quantity        int    `json:"quantity" validate:"gt=0"`
	Note            string `json:"note,omitempty"`
}

const (
	POStatusPending  = "PENDING"
	POStatusReceived = "RECEIVED"
)

type PurchaseOrderItem struct {
	ProductID string `json:"productId"`
	UnitID    string `json:"unitId,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

type PurchaseOrder struct {
	ID            string              `json:"id"`
	Number        string              `json:"number"`
	DistributorID string              `json:"distributorId"`
	Status        string              `json:"status"`
	Items         []PurchaseOrderItem `json:"items"`
	Total         Money               `json:"total"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type PurchaseOrderInput struct {
	DistributorID string              `json:"distributorId" validate:"required"`
	Items         []PurchaseOrderItem `json:"items" validate:"required,min=1"`
	Note          string              `json:"note,omitempty"`
}

type ReceiveItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PurchaseOrderReceipt struct {
	Items   []ReceiveItem `json:"items,omitempty"`
	Paid    Money         `json:"paid"`
	Invoice string        `json:"invoice,omitempty"`
}

// Bootstrap is the full reference snapshot.
type Bootstrap struct {
	Customers    []Customer      `json:"customers"`
	Products     []Product       `json:"products"`
	Distributors []Distributor   `json:"distributors"`
	PendingPOs   []PurchaseOrder `json:"pendingPOs"`
	Warehouses   []Warehouse     `json:"warehouses"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Lookup `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

const (
	TransactionLunas = "LUNAS"
	TransactionBon   = "BON"
)

type TransactionItem struct {
	ProductID     string `json:"productId"`
	Name          string `json:"name"`
	UnitName      string `json:"unitName"`
	Price         Money  `json:"price"`
	Conversion    int    `json:"conversion"`
	Quantity      int    `json:"quantity"`
	DistributorID string `json:"distributorId,omitempty"`
}

// TransactionRequest is the payload posted at checkout.
type TransactionRequest struct {
	Type           string            `json:"type"`
	CustomerID     string            `json:"customerId,omitempty"`
	Items          []TransactionItem `json:"items"`
	Subtotal       Money             `json:"subtotal"`
	Discount       Money             `json:"discount"`
	Total          Money             `json:"total"`
	Paid           Money             `json:"paid"`
	Change         Money             `json:"change"`
	Note           string            `json:"note,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
}

type Transaction struct {
	ID            string            `json:"id"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Type          Lookup            `json:"type"`
	CustomerID    string            `json:"customerId,omitempty"`
	Items         []TransactionItem `json:"items"`
	Subtotal      Money             `json:"subtotal"`
	Discount      Money             `json:"discount"`
	Total         Money             `json:"total"`
	Paid          Money             `json:"paid"`
	Change        Money             `json:"change"`
	Note          string            `json:"note,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

const (
	ReturStatusPending  = "PENDING"
	ReturStatusApproved = "APPROVED"
	ReturStatusRejected = "REJECTED"
)

type ReturItem struct {
	ProductID string `json:"productId"`
	UnitName  string `json:"unitName,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

type ReturInput struct {
	InvoiceNumber string      `json:"invoiceNumber,omitempty"`
	DistributorID string      `json:"distributorId,omitempty"`
	Reason        string      `json:"reason" validate:"required"`
	Items         []ReturItem `json:"items" validate:"required,min=1"`
}

type Retur struct {
	ID            string      `json:"id"`
	Number        string      `json:"number"`
	InvoiceNumber string      `json:"invoiceNumber,omitempty"`
	DistributorID string      `json:"distributorId,omitempty"`
	Status        string      `json:"status"`
	Reason        string      `json:"reason"`
	Items         []ReturItem `json:"items"`
	Total         Money       `json:"total"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type ReturDecision struct {
	Note string `json:"note,omitempty"`
}

type OpnameItem struct {
	ProductID   string `json:"productId"`
	ActualStock int    `json:"actualStock"`
}

type OpnameRequest struct {
	Note  string       `json:"note,omitempty"`
	Items []OpnameItem `json:"items" validate:"required,min=1"`
}

type OpnameResult struct {
	ID          string `json:"id"`
	Adjustments int    `json:"adjustments"`
}

type Report struct {
	From             string `json:"from"`
	To               string `json:"to"`
	Transactions     int    `json:"transactions"`
	GrossSales       Money  `json:"grossSales"`
	Discount         Money  `json:"discount"`
	NetSales         Money  `json:"netSales"`
	CashCollected    Money  `json:"cashCollected"`
	DebtIssued       Money  `json:"debtIssued"`
	DebtCollected    Money  `json:"debtCollected"`
	LowStockProducts int    `json:"lowStockProducts"`
}

type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Footer  string `json:"footer,omitempty"`
}

// Export is a downloaded spreadsheet.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}
