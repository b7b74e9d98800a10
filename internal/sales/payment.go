package sales

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"tokoku/client/internal/cart"
	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

// Receipt is what the cashier sees after a sale.
type Receipt struct {
	Transaction domain.Transaction
	Totals      cart.Totals
	// DebtApplied is the part of the change booked against the customer's
	// debt; CashReturned is what goes back over the counter.
	DebtApplied  domain.Money
	CashReturned domain.Money
	// DebtPaymentErr is set when the sale went through but applying the
	// change to the debt did not. The sale is not rolled back.
	DebtPaymentErr error
}

type builder func(co cart.Checkout, note string) (domain.TransactionRequest, error)

// PayFull posts a LUNAS sale and, when opted in, applies the change to the
// customer's debt in a second call.
func (r *Register) PayFull(ctx context.Context) (Receipt, error) {
	return r.submit(ctx, cart.Checkout.FullPayment, true)
}

// PayCredit posts the whole total as debt.
func (r *Register) PayCredit(ctx context.Context) (Receipt, error) {
	return r.submit(ctx, cart.Checkout.Credit, false)
}

// PayPartial posts one BON transaction with the tendered cash as paid.
func (r *Register) PayPartial(ctx context.Context) (Receipt, error) {
	return r.submit(ctx, cart.Checkout.PartialPayment, false)
}

func (r *Register) submit(ctx context.Context, build builder, full bool) (Receipt, error) {
	r.mu.Lock()
	if r.submitting {
		r.mu.Unlock()
		return Receipt{}, poserr.New(poserr.CodePrecondition, "transaksi sedang diproses")
	}
	lines := r.cart.Lines()
	discount, tendered, customerID, note := r.discount, r.tendered, r.customerID, r.note
	changeToDebt := r.changeToDebt
	r.submitting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.submitting = false
		r.mu.Unlock()
	}()

	co := cart.Evaluate(lines, discount, tendered, r.customer(customerID))
	req, err := build(co, note)
	if err != nil {
		r.toast.Error(poserr.UserMessage(err))
		return Receipt{}, err
	}
	req.IdempotencyKey = r.keyFor(req)

	trx, err := r.store.CreateTransaction(ctx, req)
	if err != nil {
		// The key stays so a retry of this exact sale cannot post it twice.
		return Receipt{}, err
	}

	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()

	receipt := Receipt{
		Transaction:  trx,
		Totals:       co.Totals,
		DebtApplied:  decimal.Zero,
		CashReturned: co.Change,
	}
	if !full || !changeToDebt || !co.CanChangeToDebt {
		return receipt, nil
	}

	applied, cash := cart.ChangeToDebt(co.Change, co.Customer.Debt)
	if _, err := r.store.ApplyChangeToDebt(ctx, co.Customer.ID, applied, trx.InvoiceNumber); err != nil {
		r.log.Error(ctx, "change-to-debt failed after sale "+trx.InvoiceNumber, err)
		receipt.DebtPaymentErr = err
		return receipt, nil
	}
	receipt.DebtApplied = applied
	receipt.CashReturned = cash
	return receipt, nil
}

// keyFor returns the idempotency key for req. A retry of an identical
// request reuses the previous key; any other payload gets a fresh one.
func (r *Register) keyFor(req domain.TransactionRequest) string {
	payload, err := json.Marshal(req)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || r.idempotencyKey == "" || r.keyPayload != string(payload) {
		r.idempotencyKey = r.newKey()
		r.keyPayload = string(payload)
	}
	return r.idempotencyKey
}
