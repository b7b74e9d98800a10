// Package sales is the cashier's register: it turns scans and key presses
// into cart changes and posts the finished sale.
package sales

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"tokoku/client/internal/cart"
	"tokoku/client/internal/domain"
	"tokoku/client/internal/format"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/notify"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/store"
	"tokoku/client/internal/xid"
)

const (
	msgBarcodeNotFound  = "Barcode tidak ditemukan"
	msgStockUnavailable = "Stok tidak tersedia"
)

type Options struct {
	// Banner is the self-clearing slot next to the scan input.
	Banner *notify.Slot
	Logger *logger.Logger
	NewKey func() string
}

type Register struct {
	store  *store.Store
	toast  *notify.Slot
	banner *notify.Slot
	log    *logger.Logger
	newKey func() string

	mu           sync.Mutex
	cart         cart.Cart
	discount     domain.Money
	tendered     domain.Money
	customerID   string
	changeToDebt bool
	note         string
	scanBuffer   string
	// idempotencyKey is reused only while the sale request stays identical
	// to keyPayload; any edit to the sale drops it.
	idempotencyKey string
	keyPayload     string
	submitting     bool
}

func New(st *store.Store, opts Options) *Register {
	if opts.Banner == nil {
		opts.Banner = notify.NewSlot(nil, 0)
	}
	if opts.NewKey == nil {
		opts.NewKey = func() string { return xid.New("sale") }
	}
	return &Register{
		store:    st,
		toast:    st.Toast(),
		banner:   opts.Banner,
		log:      opts.Logger,
		newKey:   opts.NewKey,
		discount: decimal.Zero,
		tendered: decimal.Zero,
	}
}

func (r *Register) Banner() *notify.Slot {
	return r.banner
}

// Type appends scanner keystrokes to the scan buffer.
func (r *Register) Type(text string) {
	r.mu.Lock()
	r.scanBuffer += text
	r.mu.Unlock()
}

func (r *Register) ScanBuffer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanBuffer
}

// Enter scans whatever is in the buffer.
func (r *Register) Enter(ctx context.Context) error {
	r.mu.Lock()
	code := r.scanBuffer
	r.mu.Unlock()
	return r.Scan(ctx, code)
}

// Scan resolves code on the backend and adds one unit. Rejections go to the
// banner; a successful scan shows nothing so the next scan can follow
// immediately. The scan buffer is empty afterwards either way.
func (r *Register) Scan(ctx context.Context, code string) error {
	r.mu.Lock()
	r.scanBuffer = ""
	r.mu.Unlock()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	found, err := r.store.LookupBarcode(ctx, code)
	if err != nil {
		if poserr.Is(err, poserr.CodeNetwork) {
			if match, ok := format.FindByBarcode(r.store.Products(), code); ok {
				r.log.Warn(ctx, "barcode lookup offline; using cached products", err)
				return r.add(match.Product, match.Unit, match.DistributorID, true)
			}
		}
		if poserr.Is(err, poserr.CodeNotFound) {
			err = poserr.Wrap(poserr.CodeNotFound, err, msgBarcodeNotFound)
		}
		r.banner.Error(poserr.UserMessage(err))
		return err
	}
	if found.StockFromSupplier <= 0 {
		err := poserr.New(poserr.CodePrecondition, msgStockUnavailable)
		r.banner.Error(msgStockUnavailable)
		return err
	}
	return r.add(found.Product, found.Unit, found.DistributorID, true)
}

// AddProduct is the manual add from the product picker. An empty unit means
// the base unit; an empty distributor means the product's default.
func (r *Register) AddProduct(productID, unitName, distributorID string) error {
	p, ok := r.store.Product(productID)
	if !ok {
		err := poserr.New(poserr.CodeNotFound, "produk tidak ditemukan")
		r.toast.Error(poserr.UserMessage(err))
		return err
	}
	var unit domain.Unit
	if unitName == "" {
		unit, ok = p.BaseUnit()
	} else {
		unit, ok = p.UnitByName(unitName)
	}
	if !ok {
		err := poserr.Newf(poserr.CodeValidation, "satuan %q tidak ada untuk %s", unitName, p.Name)
		r.toast.Error(poserr.UserMessage(err))
		return err
	}
	if distributorID == "" {
		if d, ok := p.DefaultDistributor(); ok {
			distributorID = d.DistributorID
		}
	}
	return r.add(p, unit, distributorID, false)
}

func (r *Register) add(p domain.Product, unit domain.Unit, distributorID string, fromScan bool) error {
	r.mu.Lock()
	line, err := r.cart.Add(p, unit, distributorID)
	if err == nil {
		r.editedLocked()
	}
	r.mu.Unlock()

	if err != nil {
		if fromScan {
			r.banner.Error(poserr.UserMessage(err))
		} else {
			r.toast.Error(poserr.UserMessage(err))
		}
		return err
	}
	r.banner.Dismiss()
	if !fromScan {
		r.toast.Success(line.Name + " (" + line.UnitName + ") ditambahkan")
	}
	return nil
}

func (r *Register) Lines() []cart.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart.Lines()
}

func (r *Register) Increment(key cart.Key) error {
	r.mu.Lock()
	err := r.cart.Increment(key)
	if err == nil {
		r.editedLocked()
	}
	r.mu.Unlock()
	if err != nil {
		r.toast.Error(poserr.UserMessage(err))
	}
	return err
}

func (r *Register) Decrement(key cart.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.cart.Decrement(key); err != nil {
		return err
	}
	r.editedLocked()
	return nil
}

func (r *Register) SetQuantity(key cart.Key, qty int) error {
	r.mu.Lock()
	err := r.cart.SetQuantity(key, qty)
	if err == nil {
		r.editedLocked()
	}
	r.mu.Unlock()
	if err != nil {
		r.toast.Error(poserr.UserMessage(err))
	}
	return err
}

func (r *Register) Remove(key cart.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart.Remove(key)
	r.editedLocked()
}

// Clear empties the cart and resets the payment inputs.
func (r *Register) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Register) SetDiscount(amount domain.Money) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discount = amount
	r.editedLocked()
}

// SetTendered records the cash handed over. Zero means not entered yet.
func (r *Register) SetTendered(amount domain.Money) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tendered = amount
	r.editedLocked()
}

func (r *Register) SetNote(note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note = strings.TrimSpace(note)
	r.editedLocked()
}

// SelectCustomer picks a customer from the loaded list; "" is a walk-in sale.
func (r *Register) SelectCustomer(id string) error {
	if id != "" {
		if _, ok := r.store.Customer(id); !ok {
			err := poserr.New(poserr.CodeNotFound, "pelanggan tidak ditemukan")
			r.toast.Error(poserr.UserMessage(err))
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customerID = id
	if id == "" {
		r.changeToDebt = false
	}
	r.editedLocked()
	return nil
}

// SetChangeToDebt opts in to applying the change toward the customer's debt.
func (r *Register) SetChangeToDebt(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changeToDebt = on
}

// Checkout is the current payment view.
func (r *Register) Checkout() cart.Checkout {
	r.mu.Lock()
	lines := r.cart.Lines()
	discount, tendered, customerID := r.discount, r.tendered, r.customerID
	r.mu.Unlock()
	return cart.Evaluate(lines, discount, tendered, r.customer(customerID))
}

func (r *Register) customer(id string) *domain.Customer {
	if id == "" {
		return nil
	}
	c, ok := r.store.Customer(id)
	if !ok {
		return nil
	}
	return &c
}

func (r *Register) resetLocked() {
	r.cart.Clear()
	r.discount = decimal.Zero
	r.tendered = decimal.Zero
	r.customerID = ""
	r.changeToDebt = false
	r.note = ""
	r.editedLocked()
}

// editedLocked drops the idempotency key: the next submit is a new sale.
func (r *Register) editedLocked() {
	r.idempotencyKey = ""
	r.keyPayload = ""
}
