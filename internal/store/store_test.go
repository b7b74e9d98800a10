package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/client/internal/clock"
	"tokoku/client/internal/domain"
	"tokoku/client/internal/notify"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/session"
)

// fakeAPI implements the calls a test needs; anything else panics through
// the nil embedded interface.
type fakeAPI struct {
	Backend

	mu             sync.Mutex
	snapshot       domain.Bootstrap
	bootstrapCalls int
	bootstrapHook  func(call int)
	calls          []string

	createCustomer func(domain.CustomerInput) (domain.Customer, error)
	payDebt        func(string, domain.DebtPayment) (domain.Customer, error)
	transaction    func(domain.TransactionRequest) (domain.Transaction, error)
	listProducts   func(domain.ListQuery) (domain.Page[domain.Product], error)
	quota          domain.EmailQuota
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Bootstrap(ctx context.Context) (domain.Bootstrap, error) {
	f.mu.Lock()
	f.bootstrapCalls++
	call := f.bootstrapCalls
	snap := f.snapshot
	hook := f.bootstrapHook
	f.mu.Unlock()
	f.record("bootstrap")
	if hook != nil {
		hook(call)
	}
	return snap, nil
}

func (f *fakeAPI) CreateCustomer(ctx context.Context, in domain.CustomerInput) (domain.Customer, error) {
	f.record("createCustomer")
	return f.createCustomer(in)
}

func (f *fakeAPI) PayCustomerDebt(ctx context.Context, id string, in domain.DebtPayment) (domain.Customer, error) {
	f.record("payDebt")
	return f.payDebt(id, in)
}

func (f *fakeAPI) CreateTransaction(ctx context.Context, in domain.TransactionRequest) (domain.Transaction, error) {
	f.record("transaction")
	return f.transaction(in)
}

func (f *fakeAPI) ListProducts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	f.record("listProducts")
	return f.listProducts(q)
}

func (f *fakeAPI) EmailQuota(ctx context.Context) (domain.EmailQuota, error) {
	f.record("emailQuota")
	return f.quota, nil
}

func (f *fakeAPI) BulkSendCustomerEmail(ctx context.Context, in domain.MessageRequest) error {
	f.record("bulkEmail")
	return nil
}

func rp(v int64) domain.Money { return decimal.NewFromInt(v) }

func seededSnapshot() domain.Bootstrap {
	return domain.Bootstrap{
		Customers:    []domain.Customer{{ID: "cus-1", Name: "Bu Sari", Type: domain.Code("TETAP"), Debt: rp(3000), CanBon: true}},
		Products:     []domain.Product{{ID: "prd-1", Name: "Mie Goreng", Stock: 40}},
		Distributors: []domain.Distributor{{ID: "dst-1", Name: "CV Sumber Rejeki"}},
		Warehouses:   []domain.Warehouse{{ID: "wh-1", Name: "Toko", IsDefault: true}},
	}
}

func newTestStore(api *fakeAPI) *Store {
	return New(api, session.NewMemoryStore(), Options{Toast: notify.NewSlot(func(d time.Duration, fn func()) clock.Timer { return stopped{} }, 0)})
}

type stopped struct{}

func (stopped) Stop() bool { return true }

func TestInvalidateReplacesOnlyNamedScopes(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	s := newTestStore(api)
	require.NoError(t, s.LoadBootstrap(context.Background()))

	api.mu.Lock()
	api.snapshot = domain.Bootstrap{
		Customers: []domain.Customer{{ID: "cus-2", Name: "Pak Budi"}},
		Products:  []domain.Product{{ID: "prd-2", Name: "Telur"}},
	}
	api.mu.Unlock()

	require.NoError(t, s.Invalidate(context.Background(), NewScopes(ScopeProducts)))
	assert.Equal(t, "prd-2", s.Products()[0].ID)
	assert.Equal(t, "cus-1", s.Customers()[0].ID, "customers were not in scope")
	assert.Len(t, s.Warehouses(), 1)

	require.NoError(t, s.Invalidate(context.Background(), nil))
	assert.Equal(t, 2, api.called("bootstrap"), "an empty scope set makes no request")
}

func TestStaleBootstrapIsDropped(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	api := &fakeAPI{snapshot: seededSnapshot()}
	api.bootstrapHook = func(call int) {
		if call == 1 {
			close(firstStarted)
			<-releaseFirst
		}
	}
	s := newTestStore(api)

	done := make(chan struct{})
	go func() {
		_ = s.Invalidate(context.Background(), AllScopes())
		close(done)
	}()
	<-firstStarted

	// The second request sees a newer snapshot and lands first.
	api.mu.Lock()
	api.snapshot = domain.Bootstrap{Products: []domain.Product{{ID: "prd-new"}}}
	api.mu.Unlock()
	require.NoError(t, s.Invalidate(context.Background(), AllScopes()))

	close(releaseFirst)
	<-done
	require.Len(t, s.Products(), 1)
	assert.Equal(t, "prd-new", s.Products()[0].ID)
}

func TestPatchActionDoesNotRefetch(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	api.createCustomer = func(in domain.CustomerInput) (domain.Customer, error) {
		return domain.Customer{ID: "cus-9", Name: in.Name, Type: domain.Code(in.Type)}, nil
	}
	s := newTestStore(api)
	require.NoError(t, s.LoadBootstrap(context.Background()))

	_, err := s.CreateCustomer(context.Background(), domain.CustomerInput{Name: "Mbak Rina", Type: "UMUM"})
	require.NoError(t, err)
	assert.Len(t, s.Customers(), 2)
	assert.Equal(t, 1, api.called("bootstrap"))

	msg, ok := s.Toast().Current()
	require.True(t, ok)
	assert.Equal(t, notify.KindSuccess, msg.Kind)
}

func TestWideActionInvalidatesBeforeToast(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	api.transaction = func(in domain.TransactionRequest) (domain.Transaction, error) {
		api.mu.Lock()
		api.snapshot.Products = []domain.Product{{ID: "prd-1", Name: "Mie Goreng", Stock: 38}}
		api.mu.Unlock()
		return domain.Transaction{ID: "trx-1", InvoiceNumber: "INV-0001", Type: domain.Code("LUNAS")}, nil
	}
	s := newTestStore(api)
	require.NoError(t, s.LoadBootstrap(context.Background()))

	var stockAtToast int
	s.Toast().Subscribe(func(msg notify.Message, visible bool) {
		if visible && msg.Kind == notify.KindSuccess {
			stockAtToast = s.Products()[0].Stock
		}
	})

	_, err := s.CreateTransaction(context.Background(), domain.TransactionRequest{
		Type:  domain.TransactionLunas,
		Items: []domain.TransactionItem{{ProductID: "prd-1", Quantity: 2, Conversion: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, api.called("bootstrap"))
	assert.Equal(t, 38, stockAtToast, "the toast fires after the refreshed snapshot is applied")
}

func TestWriteFailureToastsAndReturns(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	api.createCustomer = func(domain.CustomerInput) (domain.Customer, error) {
		return domain.Customer{}, poserr.FromStatus(409, "Nama pelanggan sudah ada")
	}
	s := newTestStore(api)
	require.NoError(t, s.LoadBootstrap(context.Background()))
	before := s.Customers()

	_, err := s.CreateCustomer(context.Background(), domain.CustomerInput{Name: "Bu Sari", Type: "TETAP"})
	require.Error(t, err)
	assert.Equal(t, before, s.Customers())

	msg, ok := s.Toast().Current()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, msg.Kind)
	assert.Equal(t, "Nama pelanggan sudah ada", msg.Text)
}

func TestValidationNeverReachesBackend(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	s := newTestStore(api)

	_, err := s.CreateCustomer(context.Background(), domain.CustomerInput{Name: "", Type: "UMUM", Email: "bukan-email"})
	typed := poserr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, poserr.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details(), "name")
	assert.Contains(t, typed.Details(), "email")
	assert.Equal(t, 0, api.called("createCustomer"))
}

func TestDebtPaymentPreconditions(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot()}
	api.payDebt = func(id string, in domain.DebtPayment) (domain.Customer, error) {
		return domain.Customer{ID: id, Name: "Bu Sari", Debt: rp(3000).Sub(in.Amount)}, nil
	}
	s := newTestStore(api)
	require.NoError(t, s.LoadBootstrap(context.Background()))

	_, err := s.PayCustomerDebt(context.Background(), "cus-1", domain.DebtPayment{Amount: rp(5000)})
	assert.True(t, poserr.Is(err, poserr.CodePrecondition))
	_, err = s.PayCustomerDebt(context.Background(), "cus-1", domain.DebtPayment{Amount: decimal.Zero})
	assert.True(t, poserr.Is(err, poserr.CodePrecondition))
	assert.Equal(t, 0, api.called("payDebt"))

	c, err := s.PayCustomerDebt(context.Background(), "cus-1", domain.DebtPayment{Amount: rp(1000)})
	require.NoError(t, err)
	assert.True(t, c.Debt.Equal(rp(2000)))
	cached, _ := s.Customer("cus-1")
	assert.True(t, cached.Debt.Equal(rp(2000)), "pay-debt patches the customer")
	assert.Equal(t, 1, api.called("bootstrap"))

	_, err = s.ApplyChangeToDebt(context.Background(), "cus-1", rp(1000), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.called("bootstrap"), "change-to-debt re-reads every collection")
}

func TestBulkEmailQuota(t *testing.T) {
	api := &fakeAPI{snapshot: seededSnapshot(), quota: domain.EmailQuota{Limit: 10, Used: 8, Remaining: 2}}
	s := newTestStore(api)

	err := s.BulkSendCustomerEmail(context.Background(), domain.MessageRequest{Message: "Tagihan", IDs: []string{"a", "b", "c"}})
	assert.True(t, poserr.Is(err, poserr.CodePrecondition))
	assert.Equal(t, 0, api.called("bulkEmail"))

	require.NoError(t, s.BulkSendCustomerEmail(context.Background(), domain.MessageRequest{Message: "Tagihan", IDs: []string{"a", "b"}}))
	err = s.BulkSendCustomerEmail(context.Background(), domain.MessageRequest{Message: "Tagihan", IDs: []string{"a"}})
	assert.True(t, poserr.Is(err, poserr.CodePrecondition), "quota is consumed locally after a send")
	assert.Equal(t, 1, api.called("emailQuota"))
}

func TestReadFailureYieldsEmptyPage(t *testing.T) {
	api := &fakeAPI{}
	api.listProducts = func(domain.ListQuery) (domain.Page[domain.Product], error) {
		return domain.Page[domain.Product]{}, errors.New("HTTP 500")
	}
	s := newTestStore(api)

	p := s.FetchProducts(context.Background(), domain.ListQuery{Page: 2})
	assert.Empty(t, p.Data)
	assert.Equal(t, 2, p.Pagination.Page)
	_, visible := s.Toast().Current()
	assert.False(t, visible, "reads never toast")
}

func TestWideActionsInvalidateEverything(t *testing.T) {
	for _, action := range []string{
		"purchase-orders.receive",
		"opname.submit",
		"transactions.create",
		"retur.create",
		"retur.approve",
		"retur.reject",
		"warehouses.transfer",
		"customers.change-debt",
	} {
		p := policyFor(action)
		assert.Equal(t, policyInvalidate, p.kind, action)
		assert.Len(t, p.scopes, 5, action)
	}
	assert.Equal(t, policyPatch, policyFor("customers.update").kind)
}
