package store

import (
	"context"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

func (s *Store) FetchDistributors(ctx context.Context, q domain.ListQuery) domain.Page[domain.Distributor] {
	p, err := s.api.ListDistributors(ctx, q)
	if err != nil {
		s.readFailed(ctx, "distributors", err)
		return domain.EmptyPage[domain.Distributor](q)
	}
	return p
}

func (s *Store) CreateDistributor(ctx context.Context, in domain.DistributorInput) (domain.Distributor, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.create", err)
	}
	d, err := s.api.CreateDistributor(ctx, in)
	if err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.create", err)
	}
	s.mu.Lock()
	s.distributors = upsert(s.distributors, d, distributorID)
	s.mu.Unlock()
	s.written(ctx, "distributors.create", "Distributor "+d.Name+" ditambahkan")
	return d, nil
}

func (s *Store) UpdateDistributor(ctx context.Context, id string, in domain.DistributorInput) (domain.Distributor, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.update", err)
	}
	d, err := s.api.UpdateDistributor(ctx, id, in)
	if err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.update", err)
	}
	s.mu.Lock()
	s.distributors = upsert(s.distributors, d, distributorID)
	s.mu.Unlock()
	s.written(ctx, "distributors.update", "Distributor "+d.Name+" diperbarui")
	return d, nil
}

func (s *Store) DeleteDistributor(ctx context.Context, id string) error {
	if err := s.api.DeleteDistributor(ctx, id); err != nil {
		return s.fail(ctx, "distributors.delete", err)
	}
	s.mu.Lock()
	s.distributors = remove(s.distributors, distributorID, id)
	s.mu.Unlock()
	s.written(ctx, "distributors.delete", "Distributor dihapus")
	return nil
}

func (s *Store) BulkDeleteDistributors(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return s.fail(ctx, "distributors.bulk", poserr.New(poserr.CodeValidation, "pilih minimal satu distributor"))
	}
	if err := s.api.BulkDeleteDistributors(ctx, ids); err != nil {
		return s.fail(ctx, "distributors.bulk", err)
	}
	s.mu.Lock()
	s.distributors = remove(s.distributors, distributorID, ids...)
	s.mu.Unlock()
	s.written(ctx, "distributors.bulk", "Distributor dihapus")
	return nil
}

func (s *Store) FetchDistributorDebts(ctx context.Context, q domain.ListQuery) domain.Page[domain.Distributor] {
	p, err := s.api.DistributorDebts(ctx, q)
	if err != nil {
		s.readFailed(ctx, "distributor debts", err)
		return domain.EmptyPage[domain.Distributor](q)
	}
	return p
}

func (s *Store) PayDistributorDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Distributor, error) {
	known, ok := s.Distributor(id)
	if err := checkDebtPayment(in.Amount, known.Debt, ok); err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.pay-debt", err)
	}
	d, err := s.api.PayDistributorDebt(ctx, id, in)
	if err != nil {
		return domain.Distributor{}, s.fail(ctx, "distributors.pay-debt", err)
	}
	s.mu.Lock()
	s.distributors = upsert(s.distributors, d, distributorID)
	s.mu.Unlock()
	s.written(ctx, "distributors.pay-debt", "Pembayaran ke "+d.Name+" tercatat")
	return d, nil
}

func (s *Store) FetchPurchaseOrders(ctx context.Context, q domain.ListQuery) domain.Page[domain.PurchaseOrder] {
	p, err := s.api.ListPurchaseOrders(ctx, q)
	if err != nil {
		s.readFailed(ctx, "purchase orders", err)
		return domain.EmptyPage[domain.PurchaseOrder](q)
	}
	return p
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, in domain.PurchaseOrderInput) (domain.PurchaseOrder, error) {
	if err := domain.Validate(in); err != nil {
		return domain.PurchaseOrder{}, s.fail(ctx, "purchase-orders.create", err)
	}
	po, err := s.api.CreatePurchaseOrder(ctx, in)
	if err != nil {
		return domain.PurchaseOrder{}, s.fail(ctx, "purchase-orders.create", err)
	}
	if po.Status == domain.POStatusPending {
		s.mu.Lock()
		s.pendingPOs = upsert(s.pendingPOs, po, purchaseOrderID)
		s.mu.Unlock()
	}
	s.written(ctx, "purchase-orders.create", "PO "+po.Number+" dibuat")
	return po, nil
}

// ReceivePurchaseOrder books the goods in: stock, supplier debt and the
// pending list all change.
func (s *Store) ReceivePurchaseOrder(ctx context.Context, id string, in domain.PurchaseOrderReceipt) (domain.PurchaseOrder, error) {
	po, err := s.api.ReceivePurchaseOrder(ctx, id, in)
	if err != nil {
		return domain.PurchaseOrder{}, s.fail(ctx, "purchase-orders.receive", err)
	}
	s.written(ctx, "purchase-orders.receive", "PO "+po.Number+" diterima")
	return po, nil
}
