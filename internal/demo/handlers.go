// Package demo is a seeded in-process backend that speaks the same REST API
// as the store server, for demo mode and end-to-end tests.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/normalize"
)

const (
	// APIPrefix is where the REST API is mounted; clients use
	// server URL + APIPrefix as their base URL.
	APIPrefix = "/api"

	maxBodyBytes = 1 << 20
)

type Options struct {
	Secret   string
	TokenTTL time.Duration
	// Users defaults to SeedUsers.
	Users  []SeedUser
	Logger *logger.Logger
	Now    func() time.Time
}

type Server struct {
	data         *data
	auth         *AuthManager
	log          *logger.Logger
	loginLimiter *attemptLimiter
}

func New(opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Users == nil {
		users, err := SeedUsers(opts.Logger, 0)
		if err != nil {
			return nil, err
		}
		opts.Users = users
	}
	auth := NewAuthManager(opts.Secret, opts.TokenTTL, opts.Users)
	auth.now = opts.Now
	return &Server{
		data:         newSeededData(opts.Now),
		auth:         auth,
		log:          opts.Logger,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}, nil
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

var (
	anyone   = []string{normalize.RoleAdmin, normalize.RoleOwner, normalize.RoleCashier}
	managers = []string{normalize.RoleAdmin, normalize.RoleOwner}
)

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc, roles []string) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+APIPrefix+path, s.requireAuth(h, roles...))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST "+APIPrefix+"/auth/login", s.handleLogin)
	mux.HandleFunc("GET "+APIPrefix+"/store/name", s.handleStoreName)

	route("GET /auth/me", s.handleMe, anyone)
	route("PUT /auth/profile", s.handleProfile, anyone)
	route("POST /auth/change-password", s.handleChangePassword, anyone)
	route("GET /bootstrap", s.handleBootstrap, anyone)

	route("GET /products", s.handleListProducts, anyone)
	route("POST /products", s.handleCreateProduct, managers)
	route("POST /products/bulk", s.handleBulkCreateProducts, managers)
	route("POST /products/bulk-delete", s.handleBulkDeleteProducts, managers)
	route("POST /products/import", s.handleImportProducts, managers)
	route("GET /products/search-by-name", s.handleSearchProducts, anyone)
	route("GET /products/suggestions", s.handleSuggestions, anyone)
	route("GET /products/by-barcode/{code}", s.handleBarcode, anyone)
	route("GET /products/{id}", s.handleGetProduct, anyone)
	route("PUT /products/{id}", s.handleUpdateProduct, managers)
	route("DELETE /products/{id}", s.handleDeleteProduct, managers)
	route("POST /products/{id}/add-stock", s.handleAddStock, managers)
	route("GET /products/{id}/stock-card", s.handleStockCard, anyone)

	route("GET /customers", s.handleListCustomers, anyone)
	route("POST /customers", s.handleCreateCustomer, anyone)
	route("GET /customers/debt", s.handleCustomerDebts, anyone)
	route("GET /customers/email-quota", s.handleEmailQuota, anyone)
	route("POST /customers/bulk-send-email", s.handleBulkEmail, managers)
	route("POST /customers/bulk-send-whatsapp", s.handleBulkWhatsApp, managers)
	route("GET /customers/{id}", s.handleGetCustomer, anyone)
	route("PUT /customers/{id}", s.handleUpdateCustomer, anyone)
	route("DELETE /customers/{id}", s.handleDeleteCustomer, managers)
	route("POST /customers/{id}/pay-debt", s.handlePayCustomerDebt, anyone)
	route("POST /customers/{id}/send-email", s.handleSendEmail, anyone)
	route("POST /customers/{id}/send-whatsapp", s.handleSendWhatsApp, anyone)

	route("GET /distributors", s.handleListDistributors, anyone)
	route("POST /distributors", s.handleCreateDistributor, managers)
	route("GET /distributors/debt", s.handleDistributorDebts, managers)
	route("DELETE /distributors/bulk", s.handleBulkDeleteDistributors, managers)
	route("PUT /distributors/{id}", s.handleUpdateDistributor, managers)
	route("DELETE /distributors/{id}", s.handleDeleteDistributor, managers)
	route("POST /distributors/{id}/pay-debt", s.handlePayDistributorDebt, managers)

	route("GET /purchase-orders", s.handleListPurchaseOrders, managers)
	route("POST /purchase-orders", s.handleCreatePurchaseOrder, managers)
	route("POST /purchase-orders/{id}/receive", s.handleReceivePurchaseOrder, managers)

	route("POST /transactions", s.handleCreateTransaction, anyone)
	route("GET /transactions", s.handleListTransactions, anyone)
	route("GET /transactions/{invoice}", s.handleGetTransaction, anyone)

	route("POST /retur/{kind}", s.handleCreateRetur, anyone)
	route("GET /retur/{kind}", s.handleListReturs, anyone)
	route("PUT /retur/penjualan/{id}/approve", s.handleApproveRetur, managers)
	route("PUT /retur/penjualan/{id}/reject", s.handleRejectRetur, managers)

	route("GET /reports", s.handleReport, managers)
	route("POST /reports/opname", s.handleOpname, managers)
	route("GET /warehouses", s.handleListWarehouses, anyone)
	route("POST /warehouses/transfer", s.handleTransfer, managers)
	route("GET /export/{kind}", s.handleExport, managers)
	route("GET /store", s.handleStoreInfo, anyone)
	route("PUT /store", s.handleUpdateStoreInfo, managers)

	return s.withMiddleware(mux)
}

type userKey struct{}

func userFrom(ctx context.Context) domain.User {
	u, _ := ctx.Value(userKey{}).(domain.User)
	return u
}

func (s *Server) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		user, err := s.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if len(roles) > 0 && !normalize.HasRole(user, roles...) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	}
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		ctx := r.Context()
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx = s.log.WithRequestID(ctx, id)
		}
		startedAt := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.log.Debug(ctx, "demo request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(startedAt).String(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Auth

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}
	var req domain.LoginRequest
	if !decodeInto(w, r, &req) {
		return
	}
	resp, err := s.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var in domain.ProfileUpdate
	if !decodeInto(w, r, &in) {
		return
	}
	u, err := s.auth.UpdateProfile(userFrom(r.Context()).Username, in)
	respond(w, http.StatusOK, u, err)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in domain.PasswordChange
	if !decodeInto(w, r, &in) {
		return
	}
	if err := s.auth.ChangePassword(userFrom(r.Context()).Username, in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.bootstrap())
}

// Products

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listProducts(listQuery(r)))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decodeInto(w, r, &in) {
		return
	}
	p, err := s.data.createProduct(in)
	respond(w, http.StatusCreated, p, err)
}

func (s *Server) handleBulkCreateProducts(w http.ResponseWriter, r *http.Request) {
	var in []domain.ProductInput
	if !decodeInto(w, r, &in) {
		return
	}
	out := make([]domain.Product, 0, len(in))
	for _, item := range in {
		p, err := s.data.createProduct(item)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleBulkDeleteProducts(w http.ResponseWriter, r *http.Request) {
	var in domain.BulkIDsRequest
	if !decodeInto(w, r, &in) {
		return
	}
	noContent(w, s.data.deleteProducts(in.IDs...))
}

func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Rows []domain.ProductImportRow `json:"rows"`
	}
	if !decodeInto(w, r, &in) {
		return
	}
	if len(in.Rows) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no rows to import"))
		return
	}
	writeJSON(w, http.StatusOK, s.data.importProducts(in.Rows))
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.searchProducts(r.URL.Query().Get("name")))
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.suggestions(r.URL.Query().Get("q")))
}

func (s *Server) handleBarcode(w http.ResponseWriter, r *http.Request) {
	found, err := s.data.lookupBarcode(r.PathValue("code"))
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, errors.New("product not found"))
		return
	}
	respond(w, http.StatusOK, found, err)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.data.product(r.PathValue("id"))
	respond(w, http.StatusOK, p, err)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decodeInto(w, r, &in) {
		return
	}
	p, err := s.data.updateProduct(r.PathValue("id"), in)
	respond(w, http.StatusOK, p, err)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	noContent(w, s.data.deleteProducts(r.PathValue("id")))
}

func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var in domain.AddStockRequest
	if !decodeInto(w, r, &in) {
		return
	}
	p, err := s.data.addStock(r.PathValue("id"), in)
	respond(w, http.StatusOK, p, err)
}

func (s *Server) handleStockCard(w http.ResponseWriter, r *http.Request) {
	page, err := s.data.stockCard(r.PathValue("id"), listQuery(r))
	respond(w, http.StatusOK, page, err)
}

// Customers

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listCustomers(listQuery(r), false))
}

func (s *Server) handleCustomerDebts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listCustomers(listQuery(r), true))
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.data.customer(r.PathValue("id"))
	respond(w, http.StatusOK, c, err)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in domain.CustomerInput
	if !decodeInto(w, r, &in) {
		return
	}
	c, err := s.data.saveCustomer("", in)
	respond(w, http.StatusCreated, c, err)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var in domain.CustomerInput
	if !decodeInto(w, r, &in) {
		return
	}
	c, err := s.data.saveCustomer(r.PathValue("id"), in)
	respond(w, http.StatusOK, c, err)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	noContent(w, s.data.deleteCustomer(r.PathValue("id")))
}

func (s *Server) handlePayCustomerDebt(w http.ResponseWriter, r *http.Request) {
	var in domain.DebtPayment
	if !decodeInto(w, r, &in) {
		return
	}
	c, err := s.data.payCustomerDebt(r.PathValue("id"), in)
	respond(w, http.StatusOK, c, err)
}

func (s *Server) handleEmailQuota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.quota())
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageRequest
	if !decodeInto(w, r, &in) {
		return
	}
	c, err := s.data.customer(r.PathValue("id"))
	if err == nil && c.Email == "" {
		err = invalidf("customer has no email address")
	}
	if err == nil {
		err = s.data.sendEmail(1)
	}
	noContent(w, err)
}

func (s *Server) handleBulkEmail(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageRequest
	if !decodeInto(w, r, &in) {
		return
	}
	noContent(w, s.data.sendEmail(len(in.IDs)))
}

func (s *Server) handleSendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageRequest
	if !decodeInto(w, r, &in) {
		return
	}
	c, err := s.data.customer(r.PathValue("id"))
	if err == nil && c.Phone == "" {
		err = invalidf("customer has no phone number")
	}
	noContent(w, err)
}

func (s *Server) handleBulkWhatsApp(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageRequest
	if !decodeInto(w, r, &in) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Distributors

func (s *Server) handleListDistributors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listDistributors(listQuery(r), false))
}

func (s *Server) handleDistributorDebts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listDistributors(listQuery(r), true))
}

func (s *Server) handleCreateDistributor(w http.ResponseWriter, r *http.Request) {
	var in domain.DistributorInput
	if !decodeInto(w, r, &in) {
		return
	}
	d, err := s.data.saveDistributor("", in)
	respond(w, http.StatusCreated, d, err)
}

func (s *Server) handleUpdateDistributor(w http.ResponseWriter, r *http.Request) {
	var in domain.DistributorInput
	if !decodeInto(w, r, &in) {
		return
	}
	d, err := s.data.saveDistributor(r.PathValue("id"), in)
	respond(w, http.StatusOK, d, err)
}

func (s *Server) handleDeleteDistributor(w http.ResponseWriter, r *http.Request) {
	noContent(w, s.data.deleteDistributors(r.PathValue("id")))
}

func (s *Server) handleBulkDeleteDistributors(w http.ResponseWriter, r *http.Request) {
	var in domain.BulkIDsRequest
	if !decodeInto(w, r, &in) {
		return
	}
	noContent(w, s.data.deleteDistributors(in.IDs...))
}

func (s *Server) handlePayDistributorDebt(w http.ResponseWriter, r *http.Request) {
	var in domain.DebtPayment
	if !decodeInto(w, r, &in) {
		return
	}
	d, err := s.data.payDistributorDebt(r.PathValue("id"), in)
	respond(w, http.StatusOK, d, err)
}

// Purchase orders

func (s *Server) handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listPurchaseOrders(listQuery(r)))
}

func (s *Server) handleCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseOrderInput
	if !decodeInto(w, r, &in) {
		return
	}
	po, err := s.data.createPurchaseOrder(in)
	respond(w, http.StatusCreated, po, err)
}

func (s *Server) handleReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseOrderReceipt
	if !decodeInto(w, r, &in) {
		return
	}
	po, err := s.data.receivePurchaseOrder(r.PathValue("id"), in)
	respond(w, http.StatusOK, po, err)
}

// Transactions

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionRequest
	if !decodeInto(w, r, &in) {
		return
	}
	trx, err := s.data.createTransaction(in)
	if err == nil {
		s.log.Info(s.log.WithUsername(r.Context(), userFrom(r.Context()).Username), "demo sale "+trx.InvoiceNumber)
	}
	respond(w, http.StatusCreated, trx, err)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listTransactions(listQuery(r)))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	trx, err := s.data.transaction(r.PathValue("invoice"))
	respond(w, http.StatusOK, trx, err)
}

// Retur

func (s *Server) handleCreateRetur(w http.ResponseWriter, r *http.Request) {
	var in domain.ReturInput
	if !decodeInto(w, r, &in) {
		return
	}
	ret, err := s.data.createRetur(r.PathValue("kind"), in)
	respond(w, http.StatusCreated, ret, err)
}

func (s *Server) handleListReturs(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != returSales && kind != returPurchase {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.data.listReturs(kind, listQuery(r)))
}

func (s *Server) handleApproveRetur(w http.ResponseWriter, r *http.Request) {
	s.decideRetur(w, r, true)
}

func (s *Server) handleRejectRetur(w http.ResponseWriter, r *http.Request) {
	s.decideRetur(w, r, false)
}

func (s *Server) decideRetur(w http.ResponseWriter, r *http.Request, approve bool) {
	var in domain.ReturDecision
	if !decodeInto(w, r, &in) {
		return
	}
	ret, err := s.data.decideSalesRetur(r.PathValue("id"), approve)
	respond(w, http.StatusOK, ret, err)
}

// Reports, warehouses, exports, store profile

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.data.report(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	respond(w, http.StatusOK, rep, err)
}

func (s *Server) handleOpname(w http.ResponseWriter, r *http.Request) {
	var in domain.OpnameRequest
	if !decodeInto(w, r, &in) {
		return
	}
	res, err := s.data.opname(in)
	respond(w, http.StatusOK, res, err)
}

func (s *Server) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.listWarehouses())
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in domain.StockTransfer
	if !decodeInto(w, r, &in) {
		return
	}
	noContent(w, s.data.transfer(in))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, name, err := s.data.export(r.PathValue("kind"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleStoreInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.info())
}

func (s *Server) handleStoreName(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": s.data.info().Name})
}

func (s *Server) handleUpdateStoreInfo(w http.ResponseWriter, r *http.Request) {
	var in domain.StoreInfo
	if !decodeInto(w, r, &in) {
		return
	}
	info, err := s.data.updateInfo(in)
	respond(w, http.StatusOK, info, err)
}

// listQuery reads page, limit and search; any other parameter becomes a
// filter.
func listQuery(r *http.Request) domain.ListQuery {
	values := r.URL.Query()
	q := domain.ListQuery{
		Page:   parsePositive(values.Get("page"), 1),
		Limit:  parsePositive(values.Get("limit"), domain.DefaultPageLimit),
		Search: values.Get("search"),
	}
	for key := range values {
		switch key {
		case "page", "limit", "search":
		default:
			if q.Filters == nil {
				q.Filters = map[string]string{}
			}
			q.Filters[key] = values.Get(key)
		}
	}
	return q.Normalize()
}

func parsePositive(raw string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	case errors.Is(err, errInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, status, payload)
}

func noContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodeInto writes the 400 itself when the body does not decode.
func decodeInto(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message; 4xx are shown to the cashier.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
