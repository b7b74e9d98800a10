package normalize

import (
	"encoding/json"
	"testing"

	"tokoku/client/internal/domain"
)

func decodeCustomer(t *testing.T, raw string) domain.Customer {
	t.Helper()
	var c domain.Customer
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return Customer(c)
}

func TestCanCustomerBonIsShapeIndependent(t *testing.T) {
	cases := []struct {
		name   string
		string string
		object string
		want   bool
	}{
		{"umum", `{"type":"UMUM"}`, `{"type":{"code":"UMUM","canBon":false}}`, false},
		{"tetap", `{"type":"TETAP"}`, `{"type":{"code":"TETAP","canBon":true}}`, true},
		// A customer without a type code never gets credit.
		{"missing", `{}`, `{"type":{"code":""}}`, false},
		{"blank", `{"type":"  "}`, `{"type":{"code":" "}}`, false},
	}
	for _, tc := range cases {
		fromString := decodeCustomer(t, tc.string)
		fromObject := decodeCustomer(t, tc.object)
		if CanCustomerBon(fromString) != tc.want || CanCustomerBon(fromObject) != tc.want {
			t.Fatalf("%s: expected %v for both shapes, got string=%v object=%v",
				tc.name, tc.want, CanCustomerBon(fromString), CanCustomerBon(fromObject))
		}
		if fromString.CanBon != tc.want || fromObject.CanBon != tc.want {
			t.Fatalf("%s: derived CanBon field not populated", tc.name)
		}
		if fromString.Type.Code != fromObject.Type.Code {
			t.Fatalf("%s: flat codes differ: %q vs %q", tc.name, fromString.Type.Code, fromObject.Type.Code)
		}
	}
}

func TestObjectFlagWinsOverCode(t *testing.T) {
	c := decodeCustomer(t, `{"type":{"code":"GROSIR","canBon":false}}`)
	if c.CanBon {
		t.Fatalf("explicit canBon=false must win over a non-UMUM code")
	}
}

func TestLowercaseCodesAreNormalized(t *testing.T) {
	c := decodeCustomer(t, `{"type":"umum"}`)
	if c.Type.Code != "UMUM" || c.CanBon {
		t.Fatalf("expected lowercase umum to normalize, got %+v", c)
	}
	if decodeCustomer(t, `{}`).CanBon {
		t.Fatalf("missing type must not allow credit")
	}
}

func TestRoleChecks(t *testing.T) {
	var admin, cashier domain.User
	_ = json.Unmarshal([]byte(`{"role":{"code":"admin","name":"Administrator"}}`), &admin)
	_ = json.Unmarshal([]byte(`{"role":"KASIR"}`), &cashier)

	if !IsManager(User(admin)) {
		t.Fatalf("admin object role should be a manager")
	}
	if IsManager(User(cashier)) || !HasRole(cashier, RoleCashier) {
		t.Fatalf("kasir string role should not be a manager")
	}
}

func TestProductSortsWithoutMutatingInput(t *testing.T) {
	in := domain.Product{Units: []domain.Unit{{Name: "dus", Conversion: 12}, {Name: "pcs", Conversion: 1}}}
	out := Product(in)
	if out.Units[0].Name != "pcs" {
		t.Fatalf("expected base unit first, got %+v", out.Units)
	}
	if in.Units[0].Name != "dus" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestTransactionTypeNormalization(t *testing.T) {
	var trx domain.Transaction
	_ = json.Unmarshal([]byte(`{"type":{"code":"bon","name":"Bon"}}`), &trx)
	if !IsCredit(Transaction(trx)) {
		t.Fatalf("expected bon object to be credit")
	}
}
