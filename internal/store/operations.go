package store

import (
	"context"
	"net/url"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

// CreateTransaction posts a sale. Stock and possibly customer debt change,
// so every collection is re-read before the success toast.
func (s *Store) CreateTransaction(ctx context.Context, in domain.TransactionRequest) (domain.Transaction, error) {
	if len(in.Items) == 0 {
		return domain.Transaction{}, s.fail(ctx, "transactions.create", poserr.New(poserr.CodePrecondition, "keranjang kosong"))
	}
	trx, err := s.api.CreateTransaction(ctx, in)
	if err != nil {
		return domain.Transaction{}, s.fail(ctx, "transactions.create", err)
	}
	s.written(ctx, "transactions.create", "Transaksi "+trx.InvoiceNumber+" berhasil")
	return trx, nil
}

func (s *Store) FetchTransactions(ctx context.Context, q domain.ListQuery) domain.Page[domain.Transaction] {
	p, err := s.api.ListTransactions(ctx, q)
	if err != nil {
		s.readFailed(ctx, "transactions", err)
		return domain.EmptyPage[domain.Transaction](q)
	}
	return p
}

func (s *Store) GetTransaction(ctx context.Context, invoiceNumber string) (domain.Transaction, error) {
	return s.api.GetTransaction(ctx, invoiceNumber)
}

// CreateRetur files a sales (penjualan) or purchase (pembelian) return.
func (s *Store) CreateRetur(ctx context.Context, kind string, in domain.ReturInput) (domain.Retur, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Retur{}, s.fail(ctx, "retur.create", err)
	}
	r, err := s.api.CreateRetur(ctx, kind, in)
	if err != nil {
		return domain.Retur{}, s.fail(ctx, "retur.create", err)
	}
	s.written(ctx, "retur.create", "Retur "+r.Number+" dibuat")
	return r, nil
}

func (s *Store) FetchReturs(ctx context.Context, kind string, q domain.ListQuery) domain.Page[domain.Retur] {
	p, err := s.api.ListReturs(ctx, kind, q)
	if err != nil {
		s.readFailed(ctx, "retur "+kind, err)
		return domain.EmptyPage[domain.Retur](q)
	}
	return p
}

func (s *Store) ApproveSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error) {
	r, err := s.api.ApproveSalesRetur(ctx, id, in)
	if err != nil {
		return domain.Retur{}, s.fail(ctx, "retur.approve", err)
	}
	s.written(ctx, "retur.approve", "Retur "+r.Number+" disetujui")
	return r, nil
}

func (s *Store) RejectSalesRetur(ctx context.Context, id string, in domain.ReturDecision) (domain.Retur, error) {
	r, err := s.api.RejectSalesRetur(ctx, id, in)
	if err != nil {
		return domain.Retur{}, s.fail(ctx, "retur.reject", err)
	}
	s.written(ctx, "retur.reject", "Retur "+r.Number+" ditolak")
	return r, nil
}

func (s *Store) FetchReport(ctx context.Context, from, to string) (domain.Report, error) {
	r, err := s.api.Report(ctx, from, to)
	if err != nil {
		s.readFailed(ctx, "report", err)
		return domain.Report{From: from, To: to}, err
	}
	return r, nil
}

func (s *Store) SubmitOpname(ctx context.Context, in domain.OpnameRequest) (domain.OpnameResult, error) {
	if err := domain.Validate(in); err != nil {
		return domain.OpnameResult{}, s.fail(ctx, "opname.submit", err)
	}
	for _, item := range in.Items {
		if item.ActualStock < 0 {
			return domain.OpnameResult{}, s.fail(ctx, "opname.submit",
				poserr.New(poserr.CodeValidation, "stok fisik tidak boleh negatif").WithDetails(map[string]string{"items": "negative stock"}))
		}
	}
	res, err := s.api.Opname(ctx, in)
	if err != nil {
		return domain.OpnameResult{}, s.fail(ctx, "opname.submit", err)
	}
	s.written(ctx, "opname.submit", "Stock opname tersimpan")
	return res, nil
}

// FetchWarehouses refreshes the warehouse collection from its own endpoint.
func (s *Store) FetchWarehouses(ctx context.Context) []domain.Warehouse {
	list, err := s.api.ListWarehouses(ctx)
	if err != nil {
		s.readFailed(ctx, "warehouses", err)
		return s.Warehouses()
	}
	list = nonNil(list)
	s.mu.Lock()
	s.warehouses = list
	s.mu.Unlock()
	return append([]domain.Warehouse(nil), list...)
}

// TransferStock moves stock between warehouses. Both warehouses must be
// known and distinct, and the quantity positive.
func (s *Store) TransferStock(ctx context.Context, in domain.StockTransfer) error {
	if err := domain.Validate(in); err != nil {
		return s.fail(ctx, "warehouses.transfer", err)
	}
	if known := s.Warehouses(); len(known) > 0 {
		if _, ok := find(known, in.FromWarehouseID, warehouseID); !ok {
			return s.fail(ctx, "warehouses.transfer", poserr.New(poserr.CodePrecondition, "gudang asal tidak dikenal"))
		}
		if _, ok := find(known, in.ToWarehouseID, warehouseID); !ok {
			return s.fail(ctx, "warehouses.transfer", poserr.New(poserr.CodePrecondition, "gudang tujuan tidak dikenal"))
		}
	}
	if err := s.api.TransferStock(ctx, in); err != nil {
		return s.fail(ctx, "warehouses.transfer", err)
	}
	s.written(ctx, "warehouses.transfer", "Transfer stok berhasil")
	return nil
}

func warehouseID(w domain.Warehouse) string { return w.ID }

// Export downloads a spreadsheet; failures are toasted like writes because
// the operator asked for the file explicitly.
func (s *Store) Export(ctx context.Context, kind string, query url.Values) (domain.Export, error) {
	out, err := s.api.Export(ctx, kind, query)
	if err != nil {
		return domain.Export{}, s.fail(ctx, "export."+kind, err)
	}
	return out, nil
}

func (s *Store) FetchStoreInfo(ctx context.Context) (domain.StoreInfo, error) {
	info, err := s.api.StoreInfo(ctx)
	if err != nil {
		s.readFailed(ctx, "store info", err)
		return domain.StoreInfo{}, err
	}
	s.mu.Lock()
	s.storeInfo = &info
	s.mu.Unlock()
	return info, nil
}

// StoreName is readable before login; failures fall back to an empty name.
func (s *Store) StoreName(ctx context.Context) string {
	name, err := s.api.StoreName(ctx)
	if err != nil {
		s.readFailed(ctx, "store name", err)
		return ""
	}
	return name
}

func (s *Store) UpdateStoreInfo(ctx context.Context, in domain.StoreInfo) (domain.StoreInfo, error) {
	if in.Name == "" {
		return domain.StoreInfo{}, s.fail(ctx, "store.update",
			poserr.New(poserr.CodeValidation, "nama toko wajib diisi").WithDetails(map[string]string{"name": "is required"}))
	}
	info, err := s.api.UpdateStoreInfo(ctx, in)
	if err != nil {
		return domain.StoreInfo{}, s.fail(ctx, "store.update", err)
	}
	s.mu.Lock()
	s.storeInfo = &info
	s.mu.Unlock()
	s.written(ctx, "store.update", "Profil toko diperbarui")
	return info, nil
}
