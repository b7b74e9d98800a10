// Package normalize holds the business rules that read lookup-table codes.
// Everything here consumes domain.Lookup; nothing re-inspects raw JSON.
package normalize

import (
	"strings"

	"tokoku/client/internal/domain"
)

const (
	CustomerTypeUmum = "UMUM"

	RoleAdmin   = "ADMIN"
	RoleOwner   = "OWNER"
	RoleCashier = "KASIR"
)

// Code upper-cases and trims a lookup code for comparison.
func Code(l domain.Lookup) string {
	return strings.ToUpper(strings.TrimSpace(l.Code))
}

// CanCustomerBon reports whether the customer may buy on credit. The object
// form carries an explicit flag; the string form allows credit for every
// type except UMUM. A missing or blank code allows none.
func CanCustomerBon(c domain.Customer) bool {
	if c.Type.CanBon != nil {
		return *c.Type.CanBon
	}
	code := Code(c.Type)
	return code != "" && code != CustomerTypeUmum
}

// Customer fills the derived fields of one customer.
func Customer(c domain.Customer) domain.Customer {
	c.Type.Code = Code(c.Type)
	c.CanBon = CanCustomerBon(c)
	return c
}

func Customers(list []domain.Customer) []domain.Customer {
	out := make([]domain.Customer, len(list))
	for i, c := range list {
		out[i] = Customer(c)
	}
	return out
}

// Product sorts units so the base unit is index 0.
func Product(p domain.Product) domain.Product {
	units := make([]domain.Unit, len(p.Units))
	copy(units, p.Units)
	p.Units = units
	p.SortUnits()
	return p
}

func Products(list []domain.Product) []domain.Product {
	out := make([]domain.Product, len(list))
	for i, p := range list {
		out[i] = Product(p)
	}
	return out
}

func User(u domain.User) domain.User {
	u.Role.Code = Code(u.Role)
	return u
}

// HasRole reports whether the user's role code is one of roles.
func HasRole(u domain.User, roles ...string) bool {
	code := Code(u.Role)
	for _, role := range roles {
		if code == strings.ToUpper(role) {
			return true
		}
	}
	return false
}

// IsManager covers the roles allowed to approve retur and run opname.
func IsManager(u domain.User) bool {
	return HasRole(u, RoleAdmin, RoleOwner)
}

func Transaction(t domain.Transaction) domain.Transaction {
	t.Type.Code = Code(t.Type)
	return t
}

func Transactions(list []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(list))
	for i, t := range list {
		out[i] = Transaction(t)
	}
	return out
}

// IsCredit reports whether the transaction left an open balance.
func IsCredit(t domain.Transaction) bool {
	return Code(t.Type) == domain.TransactionBon
}

// Bootstrap normalizes every collection of a snapshot.
func Bootstrap(b domain.Bootstrap) domain.Bootstrap {
	b.Customers = Customers(b.Customers)
	b.Products = Products(b.Products)
	return b
}
