package store

import (
	"context"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/format"
	"tokoku/client/internal/poserr"
)

func (s *Store) FetchCustomers(ctx context.Context, q domain.ListQuery) domain.Page[domain.Customer] {
	p, err := s.api.ListCustomers(ctx, q)
	if err != nil {
		s.readFailed(ctx, "customers", err)
		return domain.EmptyPage[domain.Customer](q)
	}
	return p
}

func (s *Store) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.api.GetCustomer(ctx, id)
}

func (s *Store) CreateCustomer(ctx context.Context, in domain.CustomerInput) (domain.Customer, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Customer{}, s.fail(ctx, "customers.create", err)
	}
	c, err := s.api.CreateCustomer(ctx, in)
	if err != nil {
		return domain.Customer{}, s.fail(ctx, "customers.create", err)
	}
	s.mu.Lock()
	s.customers = upsert(s.customers, c, customerID)
	s.mu.Unlock()
	s.written(ctx, "customers.create", "Pelanggan "+c.Name+" ditambahkan")
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, in domain.CustomerInput) (domain.Customer, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Customer{}, s.fail(ctx, "customers.update", err)
	}
	c, err := s.api.UpdateCustomer(ctx, id, in)
	if err != nil {
		return domain.Customer{}, s.fail(ctx, "customers.update", err)
	}
	s.mu.Lock()
	s.customers = upsert(s.customers, c, customerID)
	s.mu.Unlock()
	s.written(ctx, "customers.update", "Pelanggan "+c.Name+" diperbarui")
	return c, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.api.DeleteCustomer(ctx, id); err != nil {
		return s.fail(ctx, "customers.delete", err)
	}
	s.mu.Lock()
	s.customers = remove(s.customers, customerID, id)
	s.mu.Unlock()
	s.written(ctx, "customers.delete", "Pelanggan dihapus")
	return nil
}

func (s *Store) FetchCustomerDebts(ctx context.Context, q domain.ListQuery) domain.Page[domain.Customer] {
	p, err := s.api.CustomerDebts(ctx, q)
	if err != nil {
		s.readFailed(ctx, "customer debts", err)
		return domain.EmptyPage[domain.Customer](q)
	}
	return p
}

// checkDebtPayment rejects an amount that is not positive or exceeds the
// last-known debt.
func checkDebtPayment(amount, debt domain.Money, known bool) error {
	if !amount.IsPositive() {
		return poserr.New(poserr.CodePrecondition, "nominal pembayaran harus lebih dari 0").
			WithDetails(map[string]string{"amount": "must be greater than 0"})
	}
	if known && amount.GreaterThan(debt) {
		return poserr.Newf(poserr.CodePrecondition, "nominal melebihi hutang (%s)", format.Currency(debt)).
			WithDetails(map[string]string{"amount": "exceeds debt"})
	}
	return nil
}

// PayCustomerDebt records a debt payment and patches the customer from the
// response.
func (s *Store) PayCustomerDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Customer, error) {
	return s.payCustomerDebt(ctx, "customers.pay-debt", id, in)
}

// ApplyChangeToDebt is the second step of a sale whose change goes toward the
// customer's debt. It re-reads every collection afterwards.
func (s *Store) ApplyChangeToDebt(ctx context.Context, id string, amount domain.Money, invoice string) (domain.Customer, error) {
	return s.payCustomerDebt(ctx, "customers.change-debt", id, domain.DebtPayment{
		Amount: amount,
		Note:   "Kembalian " + invoice,
	})
}

func (s *Store) payCustomerDebt(ctx context.Context, action, id string, in domain.DebtPayment) (domain.Customer, error) {
	known, ok := s.Customer(id)
	if err := checkDebtPayment(in.Amount, known.Debt, ok); err != nil {
		return domain.Customer{}, s.fail(ctx, action, err)
	}
	c, err := s.api.PayCustomerDebt(ctx, id, in)
	if err != nil {
		return domain.Customer{}, s.fail(ctx, action, err)
	}
	s.mu.Lock()
	s.customers = upsert(s.customers, c, customerID)
	s.mu.Unlock()
	s.written(ctx, action, "Pembayaran hutang "+format.Currency(in.Amount)+" tercatat")
	return c, nil
}

// EmailQuota reads the remaining email quota and caches it for the bulk
// send precondition.
func (s *Store) EmailQuota(ctx context.Context) (domain.EmailQuota, error) {
	q, err := s.api.EmailQuota(ctx)
	if err != nil {
		return domain.EmailQuota{}, err
	}
	s.mu.Lock()
	s.emailQuota = &q
	s.mu.Unlock()
	return q, nil
}

func (s *Store) checkQuota(ctx context.Context, count int) error {
	s.mu.RLock()
	cached := s.emailQuota
	s.mu.RUnlock()
	var quota domain.EmailQuota
	if cached != nil {
		quota = *cached
	} else {
		q, err := s.EmailQuota(ctx)
		if err != nil {
			return err
		}
		quota = q
	}
	if count > quota.Remaining {
		return poserr.Newf(poserr.CodePrecondition, "kuota email tersisa %d, dibutuhkan %d", quota.Remaining, count).
			WithDetails(map[string]string{"ids": "exceeds quota"})
	}
	return nil
}

func (s *Store) consumeQuota(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailQuota != nil {
		s.emailQuota.Used += count
		s.emailQuota.Remaining -= count
	}
}

func (s *Store) SendCustomerEmail(ctx context.Context, id string, msg domain.MessageRequest) error {
	if err := s.checkQuota(ctx, 1); err != nil {
		return s.fail(ctx, "customers.email", err)
	}
	if err := s.api.SendCustomerEmail(ctx, id, msg); err != nil {
		return s.fail(ctx, "customers.email", err)
	}
	s.consumeQuota(1)
	s.written(ctx, "customers.email", "Email terkirim")
	return nil
}

func (s *Store) BulkSendCustomerEmail(ctx context.Context, msg domain.MessageRequest) error {
	if len(msg.IDs) == 0 {
		return s.fail(ctx, "customers.bulk-email", poserr.New(poserr.CodeValidation, "pilih minimal satu pelanggan"))
	}
	if err := s.checkQuota(ctx, len(msg.IDs)); err != nil {
		return s.fail(ctx, "customers.bulk-email", err)
	}
	if err := s.api.BulkSendCustomerEmail(ctx, msg); err != nil {
		return s.fail(ctx, "customers.bulk-email", err)
	}
	s.consumeQuota(len(msg.IDs))
	s.written(ctx, "customers.bulk-email", "Email terkirim")
	return nil
}

func (s *Store) SendCustomerWhatsApp(ctx context.Context, id string, msg domain.MessageRequest) error {
	if err := s.api.SendCustomerWhatsApp(ctx, id, msg); err != nil {
		return s.fail(ctx, "customers.whatsapp", err)
	}
	s.written(ctx, "customers.whatsapp", "Pesan WhatsApp terkirim")
	return nil
}

func (s *Store) BulkSendCustomerWhatsApp(ctx context.Context, msg domain.MessageRequest) error {
	if len(msg.IDs) == 0 {
		return s.fail(ctx, "customers.bulk-whatsapp", poserr.New(poserr.CodeValidation, "pilih minimal satu pelanggan"))
	}
	if err := s.api.BulkSendCustomerWhatsApp(ctx, msg); err != nil {
		return s.fail(ctx, "customers.bulk-whatsapp", err)
	}
	s.written(ctx, "customers.bulk-whatsapp", "Pesan WhatsApp terkirim")
	return nil
}
