package cart

import (
	"github.com/shopspring/decimal"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/normalize"
	"tokoku/client/internal/poserr"
)

type State string

const (
	StateEmpty           State = "EMPTY"
	StateAwaitingPayment State = "AWAITING_PAYMENT"
	StateShort           State = "SHORT"
	StateReadyFull       State = "READY_FULL"
)

type Totals struct {
	Subtotal  domain.Money
	Discount  domain.Money
	Total     domain.Money
	Tendered  domain.Money
	Change    domain.Money
	Shortfall domain.Money
}

// Compute derives the totals. A negative discount or tender counts as zero.
func Compute(lines []Line, discount, tendered domain.Money) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}
	discount = decimal.Max(decimal.Zero, discount)
	tendered = decimal.Max(decimal.Zero, tendered)
	total := decimal.Max(decimal.Zero, subtotal.Sub(discount))

	t := Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     total,
		Tendered:  tendered,
		Change:    decimal.Zero,
		Shortfall: decimal.Zero,
	}
	if tendered.GreaterThanOrEqual(total) {
		t.Change = tendered.Sub(total)
	} else {
		t.Shortfall = total.Sub(tendered)
	}
	return t
}

// Checkout is the payment view of the cart for one customer selection.
type Checkout struct {
	Totals
	State    State
	Lines    []Line
	Customer *domain.Customer

	CreditAllowed   bool
	CanPayFull      bool
	CanPayCredit    bool
	CanPayPartial   bool
	CanChangeToDebt bool
}

// Evaluate recomputes the payment state. customer may be nil (walk-in).
func Evaluate(lines []Line, discount, tendered domain.Money, customer *domain.Customer) Checkout {
	co := Checkout{Totals: Compute(lines, discount, tendered), Lines: lines, Customer: customer}
	if customer != nil {
		co.CreditAllowed = normalize.CanCustomerBon(*customer)
	}

	switch {
	case len(lines) == 0:
		co.State = StateEmpty
		return co
	case co.Tendered.GreaterThanOrEqual(co.Total):
		co.State = StateReadyFull
	case co.Tendered.IsPositive():
		co.State = StateShort
	default:
		co.State = StateAwaitingPayment
	}

	co.CanPayFull = co.State == StateReadyFull
	co.CanPayCredit = co.CreditAllowed
	co.CanPayPartial = co.State == StateShort && co.CreditAllowed
	co.CanChangeToDebt = co.CanPayFull && customer != nil &&
		co.Change.IsPositive() && customer.Debt.IsPositive()
	return co
}

func (co Checkout) customerID() string {
	if co.Customer == nil {
		return ""
	}
	return co.Customer.ID
}

func (co Checkout) request(kind string, paid, change domain.Money, note string) domain.TransactionRequest {
	items := make([]domain.TransactionItem, len(co.Lines))
	for i, l := range co.Lines {
		items[i] = l.Item()
	}
	return domain.TransactionRequest{
		Type:       kind,
		CustomerID: co.customerID(),
		Items:      items,
		Subtotal:   co.Subtotal,
		Discount:   co.Discount,
		Total:      co.Total,
		Paid:       paid,
		Change:     change,
		Note:       note,
	}
}

// FullPayment builds a LUNAS sale. Requires READY_FULL.
func (co Checkout) FullPayment(note string) (domain.TransactionRequest, error) {
	if !co.CanPayFull {
		return domain.TransactionRequest{}, poserr.New(poserr.CodePrecondition, "uang diterima kurang dari total")
	}
	return co.request(domain.TransactionLunas, co.Tendered, co.Change, note), nil
}

// Credit posts the whole total as debt with no cash collected.
func (co Checkout) Credit(note string) (domain.TransactionRequest, error) {
	if co.State == StateEmpty {
		return domain.TransactionRequest{}, poserr.New(poserr.CodePrecondition, "keranjang kosong")
	}
	if !co.CanPayCredit {
		return domain.TransactionRequest{}, poserr.New(poserr.CodePrecondition, "pelanggan tidak boleh bon")
	}
	return co.request(domain.TransactionBon, decimal.Zero, decimal.Zero, note), nil
}

// PartialPayment is one BON transaction carrying the full total and the cash
// tendered as paid; the shortfall becomes customer debt on the backend.
func (co Checkout) PartialPayment(note string) (domain.TransactionRequest, error) {
	if !co.CanPayPartial {
		return domain.TransactionRequest{}, poserr.New(poserr.CodePrecondition, "pembayaran sebagian tidak tersedia")
	}
	return co.request(domain.TransactionBon, co.Tendered, decimal.Zero, note), nil
}

// ChangeToDebt splits change into the part applied to an existing debt and
// the cash handed back.
func ChangeToDebt(change, debt domain.Money) (applied, cashReturned domain.Money) {
	if !change.IsPositive() || !debt.IsPositive() {
		return decimal.Zero, decimal.Max(decimal.Zero, change)
	}
	applied = decimal.Min(change, debt)
	return applied, change.Sub(applied)
}
