package store

import "sort"

// Scope names one reference collection held by the store.
type Scope string

const (
	ScopeCustomers    Scope = "customers"
	ScopeProducts     Scope = "products"
	ScopeDistributors Scope = "distributors"
	ScopePendingPOs   Scope = "pendingPOs"
	ScopeWarehouses   Scope = "warehouses"
)

type Scopes map[Scope]struct{}

func NewScopes(scopes ...Scope) Scopes {
	set := make(Scopes, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return set
}

// AllScopes is every bootstrap collection.
func AllScopes() Scopes {
	return NewScopes(ScopeCustomers, ScopeProducts, ScopeDistributors, ScopePendingPOs, ScopeWarehouses)
}

func (s Scopes) Has(scope Scope) bool {
	_, ok := s[scope]
	return ok
}

// List returns the scopes sorted, for logging.
func (s Scopes) List() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, string(scope))
	}
	sort.Strings(out)
	return out
}

type policyKind int

const (
	policyPatch policyKind = iota
	policyInvalidate
)

type policy struct {
	kind   policyKind
	scopes Scopes
}

func patch() policy { return policy{kind: policyPatch} }

func invalidate(scopes Scopes) policy { return policy{kind: policyInvalidate, scopes: scopes} }

// actionPolicy decides, per write action, whether the response is patched in
// or the collections are re-read. Actions whose side effects are not fully
// described by their response invalidate every collection.
var actionPolicy = map[string]policy{
	"auth.profile":            patch(),
	"auth.password":           patch(),
	"products.create":         patch(),
	"products.update":         patch(),
	"products.delete":         patch(),
	"products.bulk-create":    patch(),
	"products.bulk-delete":    patch(),
	"products.add-stock":      invalidate(AllScopes()),
	"products.import":         invalidate(AllScopes()),
	"customers.create":        patch(),
	"customers.update":        patch(),
	"customers.delete":        patch(),
	"customers.pay-debt":      patch(),
	"customers.change-debt":   invalidate(AllScopes()),
	"customers.email":         patch(),
	"customers.bulk-email":    patch(),
	"customers.whatsapp":      patch(),
	"customers.bulk-whatsapp": patch(),
	"distributors.create":     patch(),
	"distributors.update":     patch(),
	"distributors.delete":     patch(),
	"distributors.bulk":       patch(),
	"distributors.pay-debt":   patch(),
	"purchase-orders.create":  patch(),
	"purchase-orders.receive": invalidate(AllScopes()),
	"transactions.create":     invalidate(AllScopes()),
	"retur.create":            invalidate(AllScopes()),
	"retur.approve":           invalidate(AllScopes()),
	"retur.reject":            invalidate(AllScopes()),
	"opname.submit":           invalidate(AllScopes()),
	"warehouses.transfer":     invalidate(AllScopes()),
	"store.update":            patch(),
}

func policyFor(action string) policy {
	if p, ok := actionPolicy[action]; ok {
		return p
	}
	return invalidate(AllScopes())
}
