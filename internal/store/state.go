package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/notify"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/session"
)

type Options struct {
	Toast  *notify.Slot
	Logger *logger.Logger
	Now    func() time.Time
}

type Store struct {
	api      Backend
	sessions session.Store
	toast    *notify.Slot
	log      *logger.Logger
	now      func() time.Time

	mu            sync.RWMutex
	user          *domain.User
	authenticated bool
	customers     []domain.Customer
	products      []domain.Product
	distributors  []domain.Distributor
	pendingPOs    []domain.PurchaseOrder
	warehouses    []domain.Warehouse
	storeInfo     *domain.StoreInfo
	emailQuota    *domain.EmailQuota
	loaded        bool

	// bootstrapSeq numbers bootstrap requests; appliedSeq is the newest one
	// whose snapshot has been applied.
	bootstrapSeq uint64
	appliedSeq   uint64
}

func New(api Backend, sessions session.Store, opts Options) *Store {
	if opts.Toast == nil {
		opts.Toast = notify.NewSlot(nil, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	return &Store{
		api:      api,
		sessions: sessions,
		toast:    opts.Toast,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

// Toast is the slot actions report to.
func (s *Store) Toast() *notify.Slot {
	return s.toast
}

func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Loaded reports whether a bootstrap snapshot has been applied.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) Customers() []domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Customer(nil), s.customers...)
}

func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

func (s *Store) Distributors() []domain.Distributor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Distributor(nil), s.distributors...)
}

func (s *Store) PendingPOs() []domain.PurchaseOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PurchaseOrder(nil), s.pendingPOs...)
}

func (s *Store) Warehouses() []domain.Warehouse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Warehouse(nil), s.warehouses...)
}

func (s *Store) Customer(id string) (domain.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.customers, id, customerID)
}

func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.products, id, productID)
}

func (s *Store) Distributor(id string) (domain.Distributor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.distributors, id, distributorID)
}

// Invalidate re-reads /bootstrap once and replaces exactly the collections in
// scopes. A snapshot that arrives after a newer one has been applied is
// dropped.
func (s *Store) Invalidate(ctx context.Context, scopes Scopes) error {
	if len(scopes) == 0 {
		return nil
	}
	s.mu.Lock()
	s.bootstrapSeq++
	seq := s.bootstrapSeq
	s.mu.Unlock()

	snapshot, err := s.api.Bootstrap(ctx)
	if err != nil {
		s.log.Warn(ctx, "bootstrap refresh failed", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.appliedSeq {
		s.log.Debug(ctx, "stale bootstrap dropped", map[string]any{"seq": seq, "applied": s.appliedSeq})
		return nil
	}
	s.appliedSeq = seq
	if scopes.Has(ScopeCustomers) {
		s.customers = nonNil(snapshot.Customers)
	}
	if scopes.Has(ScopeProducts) {
		s.products = nonNil(snapshot.Products)
	}
	if scopes.Has(ScopeDistributors) {
		s.distributors = nonNil(snapshot.Distributors)
	}
	if scopes.Has(ScopePendingPOs) {
		s.pendingPOs = nonNil(snapshot.PendingPOs)
	}
	if scopes.Has(ScopeWarehouses) {
		s.warehouses = nonNil(snapshot.Warehouses)
	}
	s.loaded = true
	s.log.Debug(ctx, "bootstrap applied", map[string]any{"scopes": scopes.List()})
	return nil
}

// LoadBootstrap fetches every collection.
func (s *Store) LoadBootstrap(ctx context.Context) error {
	if err := s.Invalidate(ctx, AllScopes()); err != nil {
		return s.fail(ctx, "bootstrap", err)
	}
	return nil
}

// written finishes a successful write: invalidate if the action's policy says
// so, then toast. A failed refresh is logged; the write itself stands.
func (s *Store) written(ctx context.Context, action, message string) {
	if p := policyFor(action); p.kind == policyInvalidate {
		_ = s.Invalidate(ctx, p.scopes)
	}
	s.log.Info(ctx, "action "+action+" ok")
	if message != "" {
		s.toast.Success(message)
	}
}

// fail reports a write failure and hands the error back to the caller.
func (s *Store) fail(ctx context.Context, action string, err error) error {
	if poserr.Is(err, poserr.CodeValidation) || poserr.Is(err, poserr.CodePrecondition) {
		s.log.Warn(ctx, "action "+action+" rejected", err)
	} else {
		s.log.Error(ctx, "action "+action+" failed", err)
	}
	s.toast.Error(poserr.UserMessage(err))
	return err
}

// readFailed logs a failed list read. Cancellation by a newer read is not
// worth a warning.
func (s *Store) readFailed(ctx context.Context, what string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Warn(ctx, "read "+what+" failed", err)
}

func (s *Store) resetLocked() {
	s.user = nil
	s.authenticated = false
	s.customers = nil
	s.products = nil
	s.distributors = nil
	s.pendingPOs = nil
	s.warehouses = nil
	s.storeInfo = nil
	s.emailQuota = nil
	s.loaded = false
}

func customerID(c domain.Customer) string           { return c.ID }
func productID(p domain.Product) string             { return p.ID }
func distributorID(d domain.Distributor) string     { return d.ID }
func purchaseOrderID(p domain.PurchaseOrder) string { return p.ID }

func find[T any](list []T, id string, key func(T) string) (T, bool) {
	for _, item := range list {
		if key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// upsert replaces the record with the same id or appends it.
func upsert[T any](list []T, item T, key func(T) string) []T {
	id := key(item)
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if key(out[i]) == id {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

func remove[T any](list []T, key func(T) string, ids ...string) []T {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]T, 0, len(list))
	for _, item := range list {
		if _, ok := drop[key(item)]; !ok {
			out = append(out, item)
		}
	}
	return out
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
