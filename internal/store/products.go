package store

import (
	"context"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

func (s *Store) FetchProducts(ctx context.Context, q domain.ListQuery) domain.Page[domain.Product] {
	p, err := s.api.ListProducts(ctx, q)
	if err != nil {
		s.readFailed(ctx, "products", err)
		return domain.EmptyPage[domain.Product](q)
	}
	return p
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.api.GetProduct(ctx, id)
}

func (s *Store) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Product{}, s.fail(ctx, "products.create", err)
	}
	p, err := s.api.CreateProduct(ctx, in)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "products.create", err)
	}
	s.mu.Lock()
	s.products = upsert(s.products, p, productID)
	s.mu.Unlock()
	s.written(ctx, "products.create", "Produk "+p.Name+" ditambahkan")
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Product{}, s.fail(ctx, "products.update", err)
	}
	p, err := s.api.UpdateProduct(ctx, id, in)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "products.update", err)
	}
	s.mu.Lock()
	s.products = upsert(s.products, p, productID)
	s.mu.Unlock()
	s.written(ctx, "products.update", "Produk "+p.Name+" diperbarui")
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return s.fail(ctx, "products.delete", err)
	}
	s.mu.Lock()
	s.products = remove(s.products, productID, id)
	s.mu.Unlock()
	s.written(ctx, "products.delete", "Produk dihapus")
	return nil
}

func (s *Store) BulkCreateProducts(ctx context.Context, in []domain.ProductInput) ([]domain.Product, error) {
	for _, item := range in {
		if err := domain.Validate(item); err != nil {
			return nil, s.fail(ctx, "products.bulk-create", err)
		}
	}
	created, err := s.api.BulkCreateProducts(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "products.bulk-create", err)
	}
	s.mu.Lock()
	for _, p := range created {
		s.products = upsert(s.products, p, productID)
	}
	s.mu.Unlock()
	s.written(ctx, "products.bulk-create", "Produk ditambahkan")
	return created, nil
}

func (s *Store) BulkDeleteProducts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return s.fail(ctx, "products.bulk-delete", poserr.New(poserr.CodeValidation, "pilih minimal satu produk"))
	}
	if err := s.api.BulkDeleteProducts(ctx, ids); err != nil {
		return s.fail(ctx, "products.bulk-delete", err)
	}
	s.mu.Lock()
	s.products = remove(s.products, productID, ids...)
	s.mu.Unlock()
	s.written(ctx, "products.bulk-delete", "Produk dihapus")
	return nil
}

// AddStock records a stock receipt. Stock and supplier debt move on the
// backend, so the collections are re-read.
func (s *Store) AddStock(ctx context.Context, id string, in domain.AddStockRequest) (domain.Product, error) {
	if in.Quantity <= 0 {
		return domain.Product{}, s.fail(ctx, "products.add-stock",
			poserr.New(poserr.CodeValidation, "jumlah stok harus lebih dari 0").WithDetails(map[string]string{"quantity": "must be greater than 0"}))
	}
	p, err := s.api.AddStock(ctx, id, in)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "products.add-stock", err)
	}
	s.written(ctx, "products.add-stock", "Stok "+p.Name+" ditambahkan")
	return p, nil
}

func (s *Store) StockCard(ctx context.Context, id string, q domain.ListQuery) domain.Page[domain.StockCardEntry] {
	p, err := s.api.StockCard(ctx, id, q)
	if err != nil {
		s.readFailed(ctx, "stock card", err)
		return domain.EmptyPage[domain.StockCardEntry](q)
	}
	return p
}

// LookupBarcode resolves a scanned code on the backend. Errors are returned
// untouched so the caller can show them where the scan happened.
func (s *Store) LookupBarcode(ctx context.Context, code string) (domain.BarcodeLookup, error) {
	return s.api.ProductByBarcode(ctx, code)
}

func (s *Store) SearchProductsByName(ctx context.Context, name string) []domain.Product {
	list, err := s.api.SearchProductsByName(ctx, name)
	if err != nil {
		s.readFailed(ctx, "product search", err)
		return []domain.Product{}
	}
	return nonNil(list)
}

func (s *Store) ProductSuggestions(ctx context.Context, query string) []domain.ProductSuggestion {
	list, err := s.api.ProductSuggestions(ctx, query)
	if err != nil {
		s.readFailed(ctx, "product suggestions", err)
		return []domain.ProductSuggestion{}
	}
	return nonNil(list)
}

// ImportProducts sends spreadsheet rows; an import can touch any product.
func (s *Store) ImportProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error) {
	if len(rows) == 0 {
		return domain.ProductImportResult{}, s.fail(ctx, "products.import", poserr.New(poserr.CodeValidation, "file impor kosong"))
	}
	res, err := s.api.ImportProducts(ctx, rows)
	if err != nil {
		return domain.ProductImportResult{}, s.fail(ctx, "products.import", err)
	}
	s.written(ctx, "products.import", "Impor selesai")
	return res, nil
}
