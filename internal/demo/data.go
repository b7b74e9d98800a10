package demo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/normalize"
	"tokoku/client/internal/xid"
)

var (
	errNotFound          = errors.New("not found")
	errInvalid           = errors.New("invalid request")
	errInsufficientStock = errors.New("insufficient stock")
)

// invalidf wraps errInvalid with a message the client shows as is.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errInvalid}, args...)...)
}

type data struct {
	mu  sync.RWMutex
	now func() time.Time

	products       []domain.Product
	customers      []domain.Customer
	distributors   []domain.Distributor
	warehouses     []domain.Warehouse
	purchaseOrders []domain.PurchaseOrder
	stockHistory   map[string][]domain.StockCardEntry
	// warehouseStock holds stock outside the default warehouse, whose stock
	// is Product.Stock.
	warehouseStock map[string]map[string]int
	transactions   map[string]domain.Transaction
	invoiceOrder   []string
	byIdempotency  map[string]string
	returs         map[string][]domain.Retur
	debtCollected  []debtEntry
	storeInfo      domain.StoreInfo
	emailQuota     domain.EmailQuota

	nextInvoice int
	nextPO      int
	nextRetur   int
}

type debtEntry struct {
	at     time.Time
	amount domain.Money
}

func paginate[T any](items []T, q domain.ListQuery) domain.Page[T] {
	q = q.Normalize()
	total := len(items)
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := min(start+q.Limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return domain.Page[T]{
		Data: out,
		Pagination: domain.Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		},
	}
}

func cloneProduct(p domain.Product) domain.Product {
	p.Units = slices.Clone(p.Units)
	dists := make([]domain.ProductDistributor, len(p.Distributors))
	for i, d := range p.Distributors {
		d.Barcodes = slices.Clone(d.Barcodes)
		dists[i] = d
	}
	p.Distributors = dists
	return p
}

func (d *data) bootstrap() domain.Bootstrap {
	d.mu.RLock()
	defer d.mu.RUnlock()
	products := make([]domain.Product, len(d.products))
	for i, p := range d.products {
		products[i] = cloneProduct(p)
	}
	var pending []domain.PurchaseOrder
	for _, po := range d.purchaseOrders {
		if po.Status == domain.POStatusPending {
			pending = append(pending, po)
		}
	}
	return domain.Bootstrap{
		Customers:    slices.Clone(d.customers),
		Products:     products,
		Distributors: slices.Clone(d.distributors),
		PendingPOs:   pending,
		Warehouses:   slices.Clone(d.warehouses),
	}
}

// Products

func (d *data) listProducts(q domain.ListQuery) domain.Page[domain.Product] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	search := strings.TrimSpace(q.Search)
	matched := make([]domain.Product, 0, len(d.products))
	for _, p := range d.products {
		if search == "" || containsFold(p.Name, search) || containsFold(p.SKU, search) {
			matched = append(matched, cloneProduct(p))
		}
	}
	return paginate(matched, q)
}

func (d *data) productIndex(id string) int {
	return slices.IndexFunc(d.products, func(p domain.Product) bool { return p.ID == id })
}

func (d *data) product(id string) (domain.Product, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.productIndex(id)
	if i < 0 {
		return domain.Product{}, errNotFound
	}
	return cloneProduct(d.products[i]), nil
}

func (d *data) buildProduct(id string, in domain.ProductInput) (domain.Product, error) {
	if strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.Name) == "" {
		return domain.Product{}, invalidf("sku and name are required")
	}
	bases := 0
	units := make([]domain.Unit, len(in.Units))
	for i, u := range in.Units {
		if u.Conversion < 1 {
			return domain.Product{}, invalidf("unit %s has an invalid conversion", u.Name)
		}
		if u.Conversion == 1 {
			bases++
		}
		if u.ID == "" {
			u.ID = xid.New("unit")
		}
		units[i] = u
	}
	if bases != 1 {
		return domain.Product{}, invalidf("a product needs exactly one base unit")
	}
	p := domain.Product{
		ID:           id,
		SKU:          strings.TrimSpace(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		MinStock:     in.MinStock,
		Units:        units,
		Distributors: slices.Clone(in.Distributors),
	}
	p.SortUnits()
	return p, nil
}

func (d *data) skuTaken(sku, exceptID string) bool {
	return slices.ContainsFunc(d.products, func(p domain.Product) bool {
		return strings.EqualFold(p.SKU, sku) && p.ID != exceptID
	})
}

func (d *data) createProduct(in domain.ProductInput) (domain.Product, error) {
	p, err := d.buildProduct(xid.New("prd"), in)
	if err != nil {
		return domain.Product{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.skuTaken(p.SKU, "") {
		return domain.Product{}, invalidf("sku %s already exists", p.SKU)
	}
	d.products = append(d.products, p)
	return cloneProduct(p), nil
}

func (d *data) updateProduct(id string, in domain.ProductInput) (domain.Product, error) {
	p, err := d.buildProduct(id, in)
	if err != nil {
		return domain.Product{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.productIndex(id)
	if i < 0 {
		return domain.Product{}, errNotFound
	}
	if d.skuTaken(p.SKU, id) {
		return domain.Product{}, invalidf("sku %s already exists", p.SKU)
	}
	p.Stock = d.products[i].Stock
	d.products[i] = p
	return cloneProduct(p), nil
}

func (d *data) deleteProducts(ids ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		if d.productIndex(id) < 0 {
			return errNotFound
		}
	}
	d.products = slices.DeleteFunc(d.products, func(p domain.Product) bool { return slices.Contains(ids, p.ID) })
	return nil
}

// recordStock appends a stock card entry. Caller holds the write lock.
func (d *data) recordStock(p *domain.Product, kind string, delta int, reference, note string) {
	before := p.Stock
	p.Stock += delta
	d.stockHistory[p.ID] = append(d.stockHistory[p.ID], domain.StockCardEntry{
		ID:          xid.New("stk"),
		Type:        kind,
		Quantity:    delta,
		StockBefore: before,
		StockAfter:  p.Stock,
		Reference:   reference,
		Note:        note,
		CreatedAt:   d.now().UTC(),
	})
}

func (d *data) addStock(id string, in domain.AddStockRequest) (domain.Product, error) {
	if in.Quantity < 1 {
		return domain.Product{}, invalidf("quantity must be greater than 0")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.productIndex(id)
	if i < 0 {
		return domain.Product{}, errNotFound
	}
	p := &d.products[i]
	conversion := 1
	if in.UnitID != "" {
		unit, ok := p.UnitByID(in.UnitID)
		if !ok {
			return domain.Product{}, invalidf("unknown unit %s", in.UnitID)
		}
		conversion = unit.Conversion
	}
	d.recordStock(p, "IN", in.Quantity*conversion, in.DistributorID, in.Note)
	return cloneProduct(*p), nil
}

func (d *data) stockCard(id string, q domain.ListQuery) (domain.Page[domain.StockCardEntry], error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.productIndex(id) < 0 {
		return domain.Page[domain.StockCardEntry]{}, errNotFound
	}
	entries := slices.Clone(d.stockHistory[id])
	slices.Reverse(entries)
	return paginate(entries, q), nil
}

func (d *data) lookupBarcode(code string) (domain.BarcodeLookup, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.products {
		for _, dist := range p.Distributors {
			for _, b := range dist.Barcodes {
				if b.Barcode != code {
					continue
				}
				unit, ok := p.UnitByID(b.UnitID)
				if !ok {
					unit, _ = p.BaseUnit()
				}
				return domain.BarcodeLookup{
					Product:           cloneProduct(p),
					Unit:              unit,
					DistributorID:     dist.DistributorID,
					StockFromSupplier: p.Stock,
				}, nil
			}
		}
	}
	return domain.BarcodeLookup{}, errNotFound
}

func (d *data) searchProducts(name string) []domain.Product {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []domain.Product{}
	name = strings.TrimSpace(name)
	if name == "" {
		return out
	}
	for _, p := range d.products {
		if containsFold(p.Name, name) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

func (d *data) suggestions(query string) []domain.ProductSuggestion {
	const limit = 8
	out := []domain.ProductSuggestion{}
	for _, p := range d.searchProducts(query) {
		out = append(out, domain.ProductSuggestion{ID: p.ID, SKU: p.SKU, Name: p.Name})
		if len(out) == limit {
			break
		}
	}
	return out
}

// importProducts upserts rows by SKU. A row for an existing SKU adds or
// reprices the named unit and adds its stock.
func (d *data) importProducts(rows []domain.ProductImportRow) domain.ProductImportResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	var res domain.ProductImportResult
	for n, row := range rows {
		if row.SKU == "" || row.Name == "" || row.Unit == "" || row.Conversion < 1 || row.Stock < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: incomplete", n+1))
			continue
		}
		i := slices.IndexFunc(d.products, func(p domain.Product) bool { return strings.EqualFold(p.SKU, row.SKU) })
		if i < 0 {
			if row.Conversion != 1 {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: new product %s must start with its base unit", n+1, row.SKU))
				continue
			}
			d.products = append(d.products, domain.Product{ID: xid.New("prd"), SKU: row.SKU, Name: row.Name})
			i = len(d.products) - 1
			res.Created++
		} else {
			res.Updated++
		}
		p := &d.products[i]
		var unitID string
		if j := slices.IndexFunc(p.Units, func(u domain.Unit) bool { return strings.EqualFold(u.Name, row.Unit) }); j >= 0 {
			p.Units[j].Price = row.Price
			unitID = p.Units[j].ID
		} else {
			unitID = xid.New("unit")
			p.Units = append(p.Units, domain.Unit{ID: unitID, Name: row.Unit, Conversion: row.Conversion, Price: row.Price})
			p.SortUnits()
		}
		if row.Barcode != "" {
			if len(p.Distributors) == 0 && len(d.distributors) > 0 {
				p.Distributors = []domain.ProductDistributor{{DistributorID: d.distributors[0].ID, IsDefault: true}}
			}
			if len(p.Distributors) > 0 {
				p.Distributors[0].Barcodes = append(p.Distributors[0].Barcodes, domain.Barcode{Barcode: row.Barcode, UnitID: unitID})
			}
		}
		if row.Stock > 0 {
			d.recordStock(p, "IMPORT", row.Stock*row.Conversion, "", "")
		}
	}
	return res
}

// Customers

func (d *data) listCustomers(q domain.ListQuery, debtOnly bool) domain.Page[domain.Customer] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := make([]domain.Customer, 0, len(d.customers))
	for _, c := range d.customers {
		if debtOnly && !c.Debt.IsPositive() {
			continue
		}
		if q.Search == "" || containsFold(c.Name, q.Search) || containsFold(c.Phone, q.Search) {
			matched = append(matched, c)
		}
	}
	return paginate(matched, q)
}

func (d *data) customerIndex(id string) int {
	return slices.IndexFunc(d.customers, func(c domain.Customer) bool { return c.ID == id })
}

func (d *data) customer(id string) (domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.customerIndex(id)
	if i < 0 {
		return domain.Customer{}, errNotFound
	}
	return d.customers[i], nil
}

func (d *data) saveCustomer(id string, in domain.CustomerInput) (domain.Customer, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Type) == "" {
		return domain.Customer{}, invalidf("name and type are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c := domain.Customer{ID: id, Debt: decimal.Zero}
	i := -1
	if id != "" {
		if i = d.customerIndex(id); i < 0 {
			return domain.Customer{}, errNotFound
		}
		c = d.customers[i]
	} else {
		c.ID = xid.New("cus")
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Type = domain.Code(strings.ToUpper(strings.TrimSpace(in.Type)))
	c.Phone, c.Email, c.Address = in.Phone, in.Email, in.Address
	if i < 0 {
		d.customers = append(d.customers, c)
	} else {
		d.customers[i] = c
	}
	return c, nil
}

func (d *data) deleteCustomer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.customerIndex(id)
	if i < 0 {
		return errNotFound
	}
	if d.customers[i].Debt.IsPositive() {
		return invalidf("customer still has outstanding debt")
	}
	d.customers = slices.Delete(d.customers, i, i+1)
	return nil
}

func (d *data) payCustomerDebt(id string, in domain.DebtPayment) (domain.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.customerIndex(id)
	if i < 0 {
		return domain.Customer{}, errNotFound
	}
	c := &d.customers[i]
	if !in.Amount.IsPositive() || in.Amount.GreaterThan(c.Debt) {
		return domain.Customer{}, invalidf("amount must be between 1 and the outstanding debt")
	}
	c.Debt = c.Debt.Sub(in.Amount)
	d.debtCollected = append(d.debtCollected, debtEntry{at: d.now().UTC(), amount: in.Amount})
	return *c, nil
}

func (d *data) sendEmail(count int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.emailQuota.Used+count > d.emailQuota.Limit {
		return invalidf("email quota exceeded")
	}
	d.emailQuota.Used += count
	return nil
}

func (d *data) quota() domain.EmailQuota {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q := d.emailQuota
	q.Remaining = q.Limit - q.Used
	return q
}

// Distributors

func (d *data) listDistributors(q domain.ListQuery, debtOnly bool) domain.Page[domain.Distributor] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := make([]domain.Distributor, 0, len(d.distributors))
	for _, dist := range d.distributors {
		if debtOnly && !dist.Debt.IsPositive() {
			continue
		}
		if q.Search == "" || containsFold(dist.Name, q.Search) {
			matched = append(matched, dist)
		}
	}
	return paginate(matched, q)
}

func (d *data) distributorIndex(id string) int {
	return slices.IndexFunc(d.distributors, func(x domain.Distributor) bool { return x.ID == id })
}

func (d *data) saveDistributor(id string, in domain.DistributorInput) (domain.Distributor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Distributor{}, invalidf("name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		dist := domain.Distributor{ID: xid.New("dst"), Name: strings.TrimSpace(in.Name), Phone: in.Phone, Address: in.Address, Debt: decimal.Zero}
		d.distributors = append(d.distributors, dist)
		return dist, nil
	}
	i := d.distributorIndex(id)
	if i < 0 {
		return domain.Distributor{}, errNotFound
	}
	dist := &d.distributors[i]
	dist.Name, dist.Phone, dist.Address = strings.TrimSpace(in.Name), in.Phone, in.Address
	return *dist, nil
}

func (d *data) deleteDistributors(ids ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		if d.distributorIndex(id) < 0 {
			return errNotFound
		}
	}
	d.distributors = slices.DeleteFunc(d.distributors, func(x domain.Distributor) bool { return slices.Contains(ids, x.ID) })
	return nil
}

func (d *data) payDistributorDebt(id string, in domain.DebtPayment) (domain.Distributor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.distributorIndex(id)
	if i < 0 {
		return domain.Distributor{}, errNotFound
	}
	dist := &d.distributors[i]
	if !in.Amount.IsPositive() || in.Amount.GreaterThan(dist.Debt) {
		return domain.Distributor{}, invalidf("amount must be between 1 and the outstanding debt")
	}
	dist.Debt = dist.Debt.Sub(in.Amount)
	return *dist, nil
}

// Purchase orders

func (d *data) listPurchaseOrders(q domain.ListQuery) domain.Page[domain.PurchaseOrder] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status := strings.ToUpper(q.Filters["status"])
	matched := make([]domain.PurchaseOrder, 0, len(d.purchaseOrders))
	for _, po := range d.purchaseOrders {
		if status == "" || po.Status == status {
			matched = append(matched, po)
		}
	}
	return paginate(matched, q)
}

func (d *data) createPurchaseOrder(in domain.PurchaseOrderInput) (domain.PurchaseOrder, error) {
	if len(in.Items) == 0 {
		return domain.PurchaseOrder{}, invalidf("a purchase order needs at least one item")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.distributorIndex(in.DistributorID) < 0 {
		return domain.PurchaseOrder{}, invalidf("unknown distributor %s", in.DistributorID)
	}
	total := decimal.Zero
	for _, item := range in.Items {
		if item.Quantity < 1 || d.productIndex(item.ProductID) < 0 {
			return domain.PurchaseOrder{}, invalidf("invalid item %s", item.ProductID)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	po := domain.PurchaseOrder{
		ID:            xid.New("po"),
		Number:        fmt.Sprintf("PO-%04d", d.nextPO),
		DistributorID: in.DistributorID,
		Status:        domain.POStatusPending,
		Items:         slices.Clone(in.Items),
		Total:         total,
		CreatedAt:     d.now().UTC(),
	}
	d.nextPO++
	d.purchaseOrders = append(d.purchaseOrders, po)
	return po, nil
}

// receivePurchaseOrder books the goods into stock and the unpaid part into
// the distributor's debt.
func (d *data) receivePurchaseOrder(id string, in domain.PurchaseOrderReceipt) (domain.PurchaseOrder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.IndexFunc(d.purchaseOrders, func(po domain.PurchaseOrder) bool { return po.ID == id })
	if i < 0 {
		return domain.PurchaseOrder{}, errNotFound
	}
	po := &d.purchaseOrders[i]
	if po.Status != domain.POStatusPending {
		return domain.PurchaseOrder{}, invalidf("purchase order %s was already received", po.Number)
	}
	if in.Paid.IsNegative() || in.Paid.GreaterThan(po.Total) {
		return domain.PurchaseOrder{}, invalidf("paid must be between 0 and the order total")
	}
	received := map[string]int{}
	for _, r := range in.Items {
		received[r.ProductID] = r.Quantity
	}
	for _, item := range po.Items {
		j := d.productIndex(item.ProductID)
		if j < 0 {
			continue
		}
		p := &d.products[j]
		qty := item.Quantity
		if override, ok := received[item.ProductID]; ok {
			qty = override
		}
		conversion := 1
		if unit, ok := p.UnitByID(item.UnitID); ok {
			conversion = unit.Conversion
		}
		d.recordStock(p, "PURCHASE", qty*conversion, po.Number, in.Invoice)
	}
	if k := d.distributorIndex(po.DistributorID); k >= 0 {
		d.distributors[k].Debt = d.distributors[k].Debt.Add(po.Total.Sub(in.Paid))
	}
	po.Status = domain.POStatusReceived
	return *po, nil
}

// Transactions

// createTransaction recomputes prices from the unit list, checks stock in
// base units and books any unpaid remainder as customer debt. A repeated
// idempotency key returns the first result.
func (d *data) createTransaction(req domain.TransactionRequest) (domain.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req.IdempotencyKey != "" {
		if invoice, ok := d.byIdempotency[req.IdempotencyKey]; ok {
			return d.transactions[invoice], nil
		}
	}
	if len(req.Items) == 0 {
		return domain.Transaction{}, invalidf("transaction has no items")
	}

	need := map[int]int{}
	items := make([]domain.TransactionItem, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return domain.Transaction{}, invalidf("quantity must be at least 1")
		}
		j := d.productIndex(item.ProductID)
		if j < 0 {
			return domain.Transaction{}, invalidf("product %s unavailable", item.ProductID)
		}
		p := d.products[j]
		unit, ok := p.UnitByName(item.UnitName)
		if !ok {
			return domain.Transaction{}, invalidf("unit %s unavailable for %s", item.UnitName, p.Name)
		}
		need[j] += item.Quantity * unit.Conversion
		if need[j] > p.Stock {
			return domain.Transaction{}, fmt.Errorf("%w for %s", errInsufficientStock, p.Name)
		}
		items = append(items, domain.TransactionItem{
			ProductID:     p.ID,
			Name:          p.Name,
			UnitName:      unit.Name,
			Price:         unit.Price,
			Conversion:    unit.Conversion,
			Quantity:      item.Quantity,
			DistributorID: item.DistributorID,
		})
		subtotal = subtotal.Add(unit.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if req.Discount.IsNegative() || req.Discount.GreaterThan(subtotal) {
		return domain.Transaction{}, invalidf("discount must be between 0 and the subtotal")
	}
	total := subtotal.Sub(req.Discount)
	paid := decimal.Max(decimal.Zero, req.Paid)
	change := decimal.Zero

	var customer *domain.Customer
	if req.CustomerID != "" {
		i := d.customerIndex(req.CustomerID)
		if i < 0 {
			return domain.Transaction{}, invalidf("unknown customer %s", req.CustomerID)
		}
		customer = &d.customers[i]
	}

	switch strings.ToUpper(req.Type) {
	case domain.TransactionLunas:
		if paid.LessThan(total) {
			return domain.Transaction{}, invalidf("paid is less than the total")
		}
		change = paid.Sub(total)
	case domain.TransactionBon:
		if customer == nil || !normalize.CanCustomerBon(*customer) {
			return domain.Transaction{}, invalidf("customer is not allowed to buy on credit")
		}
		if !paid.LessThan(total) {
			return domain.Transaction{}, invalidf("a credit sale must leave an unpaid amount")
		}
	default:
		return domain.Transaction{}, invalidf("unknown transaction type %q", req.Type)
	}

	d.nextInvoice++
	now := d.now().UTC()
	trx := domain.Transaction{
		ID:            xid.New("trx"),
		InvoiceNumber: fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), d.nextInvoice),
		Type:          domain.Code(strings.ToUpper(req.Type)),
		CustomerID:    req.CustomerID,
		Items:         items,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Total:         total,
		Paid:          paid,
		Change:        change,
		Note:          req.Note,
		CreatedAt:     now,
	}
	for j, qty := range need {
		d.recordStock(&d.products[j], "SALE", -qty, trx.InvoiceNumber, "")
	}
	if trx.Type.Code == domain.TransactionBon {
		customer.Debt = customer.Debt.Add(total.Sub(paid))
	}

	d.transactions[trx.InvoiceNumber] = trx
	d.invoiceOrder = append(d.invoiceOrder, trx.InvoiceNumber)
	if req.IdempotencyKey != "" {
		d.byIdempotency[req.IdempotencyKey] = trx.InvoiceNumber
	}
	return trx, nil
}

func (d *data) listTransactions(q domain.ListQuery) domain.Page[domain.Transaction] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(d.invoiceOrder))
	for i := len(d.invoiceOrder) - 1; i >= 0; i-- {
		trx := d.transactions[d.invoiceOrder[i]]
		if q.Search == "" || containsFold(trx.InvoiceNumber, q.Search) {
			out = append(out, trx)
		}
	}
	return paginate(out, q)
}

func (d *data) transaction(invoice string) (domain.Transaction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	trx, ok := d.transactions[invoice]
	if !ok {
		return domain.Transaction{}, errNotFound
	}
	return trx, nil
}

// Retur

const (
	returSales    = "penjualan"
	returPurchase = "pembelian"
)

// createRetur records a return. Sales returns wait for approval; purchase
// returns leave stock immediately.
func (d *data) createRetur(kind string, in domain.ReturInput) (domain.Retur, error) {
	if strings.TrimSpace(in.Reason) == "" || len(in.Items) == 0 {
		return domain.Retur{}, invalidf("reason and items are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch kind {
	case returSales:
		if _, ok := d.transactions[in.InvoiceNumber]; !ok {
			return domain.Retur{}, invalidf("unknown invoice %s", in.InvoiceNumber)
		}
	case returPurchase:
		if d.distributorIndex(in.DistributorID) < 0 {
			return domain.Retur{}, invalidf("unknown distributor %s", in.DistributorID)
		}
	default:
		return domain.Retur{}, errNotFound
	}

	total := decimal.Zero
	for _, item := range in.Items {
		if item.Quantity < 1 || d.productIndex(item.ProductID) < 0 {
			return domain.Retur{}, invalidf("invalid retur item %s", item.ProductID)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	d.nextRetur++
	r := domain.Retur{
		ID:            xid.New("ret"),
		Number:        fmt.Sprintf("RET-%04d", d.nextRetur),
		InvoiceNumber: in.InvoiceNumber,
		DistributorID: in.DistributorID,
		Status:        domain.ReturStatusPending,
		Reason:        in.Reason,
		Items:         slices.Clone(in.Items),
		Total:         total,
		CreatedAt:     d.now().UTC(),
	}
	if kind == returPurchase {
		if err := d.moveReturStock(r, -1); err != nil {
			return domain.Retur{}, err
		}
		r.Status = domain.ReturStatusApproved
	}
	d.returs[kind] = append(d.returs[kind], r)
	return r, nil
}

// moveReturStock applies a retur's items to stock. Caller holds the lock.
func (d *data) moveReturStock(r domain.Retur, sign int) error {
	for _, item := range r.Items {
		j := d.productIndex(item.ProductID)
		if j < 0 {
			return errNotFound
		}
		p := &d.products[j]
		conversion := 1
		if unit, ok := p.UnitByName(item.UnitName); ok {
			conversion = unit.Conversion
		}
		delta := sign * item.Quantity * conversion
		if p.Stock+delta < 0 {
			return fmt.Errorf("%w for %s", errInsufficientStock, p.Name)
		}
		d.recordStock(p, "RETUR", delta, r.Number, r.Reason)
	}
	return nil
}

func (d *data) listReturs(kind string, q domain.ListQuery) domain.Page[domain.Retur] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := slices.Clone(d.returs[kind])
	slices.Reverse(list)
	return paginate(list, q)
}

func (d *data) decideSalesRetur(id string, approve bool) (domain.Retur, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.returs[returSales]
	i := slices.IndexFunc(list, func(r domain.Retur) bool { return r.ID == id })
	if i < 0 {
		return domain.Retur{}, errNotFound
	}
	r := &list[i]
	if r.Status != domain.ReturStatusPending {
		return domain.Retur{}, invalidf("retur %s was already decided", r.Number)
	}
	if approve {
		if err := d.moveReturStock(*r, 1); err != nil {
			return domain.Retur{}, err
		}
		r.Status = domain.ReturStatusApproved
	} else {
		r.Status = domain.ReturStatusRejected
	}
	return *r, nil
}

// Reports, opname, warehouses

func (d *data) report(from, to string) (domain.Report, error) {
	start, end, err := reportRange(d.now().UTC(), from, to)
	if err != nil {
		return domain.Report{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	rep := domain.Report{
		From:          start.Format(time.DateOnly),
		To:            end.AddDate(0, 0, -1).Format(time.DateOnly),
		GrossSales:    decimal.Zero,
		Discount:      decimal.Zero,
		NetSales:      decimal.Zero,
		CashCollected: decimal.Zero,
		DebtIssued:    decimal.Zero,
		DebtCollected: decimal.Zero,
	}
	for _, trx := range d.transactions {
		if trx.CreatedAt.Before(start) || !trx.CreatedAt.Before(end) {
			continue
		}
		rep.Transactions++
		rep.GrossSales = rep.GrossSales.Add(trx.Subtotal)
		rep.Discount = rep.Discount.Add(trx.Discount)
		rep.NetSales = rep.NetSales.Add(trx.Total)
		rep.CashCollected = rep.CashCollected.Add(trx.Paid.Sub(trx.Change))
		if trx.Type.Code == domain.TransactionBon {
			rep.DebtIssued = rep.DebtIssued.Add(trx.Total.Sub(trx.Paid))
		}
	}
	for _, e := range d.debtCollected {
		if !e.at.Before(start) && e.at.Before(end) {
			rep.DebtCollected = rep.DebtCollected.Add(e.amount)
		}
	}
	for _, p := range d.products {
		if p.LowStock() {
			rep.LowStockProducts++
		}
	}
	return rep, nil
}

// reportRange parses YYYY-MM-DD bounds; to is inclusive. Both default to
// today.
func reportRange(now time.Time, from, to string) (time.Time, time.Time, error) {
	today := now.Truncate(24 * time.Hour)
	start, end := today, today
	var err error
	if from != "" {
		if start, err = time.Parse(time.DateOnly, from); err != nil {
			return time.Time{}, time.Time{}, invalidf("from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		if end, err = time.Parse(time.DateOnly, to); err != nil {
			return time.Time{}, time.Time{}, invalidf("to must be YYYY-MM-DD")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, invalidf("to is before from")
	}
	return start, end.AddDate(0, 0, 1), nil
}

func (d *data) opname(in domain.OpnameRequest) (domain.OpnameResult, error) {
	if len(in.Items) == 0 {
		return domain.OpnameResult{}, invalidf("opname needs at least one item")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range in.Items {
		if item.ActualStock < 0 || d.productIndex(item.ProductID) < 0 {
			return domain.OpnameResult{}, invalidf("invalid opname item %s", item.ProductID)
		}
	}
	res := domain.OpnameResult{ID: xid.New("opn")}
	for _, item := range in.Items {
		p := &d.products[d.productIndex(item.ProductID)]
		if delta := item.ActualStock - p.Stock; delta != 0 {
			d.recordStock(p, "OPNAME", delta, res.ID, in.Note)
			res.Adjustments++
		}
	}
	return res, nil
}

func (d *data) listWarehouses() []domain.Warehouse {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.warehouses)
}

func (d *data) isDefaultWarehouse(id string) (bool, bool) {
	i := slices.IndexFunc(d.warehouses, func(w domain.Warehouse) bool { return w.ID == id })
	if i < 0 {
		return false, false
	}
	return d.warehouses[i].IsDefault, true
}

// transfer moves base units between warehouses. Stock in the default
// warehouse is the product's own stock.
func (d *data) transfer(in domain.StockTransfer) error {
	if in.Quantity < 1 || in.FromWarehouseID == in.ToWarehouseID {
		return invalidf("quantity must be positive and warehouses must differ")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	j := d.productIndex(in.ProductID)
	if j < 0 {
		return errNotFound
	}
	fromDefault, okFrom := d.isDefaultWarehouse(in.FromWarehouseID)
	toDefault, okTo := d.isDefaultWarehouse(in.ToWarehouseID)
	if !okFrom || !okTo {
		return invalidf("unknown warehouse")
	}
	p := &d.products[j]

	available := d.warehouseStock[in.FromWarehouseID][p.ID]
	if fromDefault {
		available = p.Stock
	}
	if available < in.Quantity {
		return fmt.Errorf("%w for %s", errInsufficientStock, p.Name)
	}

	if fromDefault {
		d.recordStock(p, "TRANSFER", -in.Quantity, in.ToWarehouseID, in.Note)
	} else {
		d.warehouseStock[in.FromWarehouseID][p.ID] -= in.Quantity
	}
	if toDefault {
		d.recordStock(p, "TRANSFER", in.Quantity, in.FromWarehouseID, in.Note)
	} else {
		if d.warehouseStock[in.ToWarehouseID] == nil {
			d.warehouseStock[in.ToWarehouseID] = map[string]int{}
		}
		d.warehouseStock[in.ToWarehouseID][p.ID] += in.Quantity
	}
	return nil
}

func (d *data) info() domain.StoreInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.storeInfo
}

func (d *data) updateInfo(in domain.StoreInfo) (domain.StoreInfo, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.StoreInfo{}, invalidf("store name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.storeInfo = in
	return in, nil
}
