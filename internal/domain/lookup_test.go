package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLookupAcceptsStringAndObject(t *testing.T) {
	var fromString, fromObject Customer
	if err := json.Unmarshal([]byte(`{"id":"c1","name":"Budi","type":"UMUM","debt":0}`), &fromString); err != nil {
		t.Fatalf("decode string form: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"id":"c2","name":"Sari","type":{"code":"TETAP","name":"Tetap","canBon":true},"debt":15000}`), &fromObject); err != nil {
		t.Fatalf("decode object form: %v", err)
	}

	if fromString.Type.Code != "UMUM" || fromString.Type.IsObject() {
		t.Fatalf("unexpected string lookup %+v", fromString.Type)
	}
	if fromObject.Type.Code != "TETAP" || !fromObject.Type.IsObject() {
		t.Fatalf("unexpected object lookup %+v", fromObject.Type)
	}
	if fromObject.Type.CanBon == nil || !*fromObject.Type.CanBon {
		t.Fatalf("expected canBon flag to be extracted")
	}
	if !fromObject.Debt.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("unexpected debt %s", fromObject.Debt)
	}
}

func TestLookupMarshalPreservesOriginalShape(t *testing.T) {
	var c Customer
	raw := `{"code":"TETAP","name":"Tetap","canBon":true}`
	if err := json.Unmarshal([]byte(`{"type":`+raw+`}`), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := json.Marshal(c.Type)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("expected %s, got %s", raw, out)
	}

	plain, _ := json.Marshal(Code("UMUM"))
	if string(plain) != `"UMUM"` {
		t.Fatalf("expected bare code, got %s", plain)
	}
}

func TestLookupRejectsNumbers(t *testing.T) {
	var l Lookup
	if err := json.Unmarshal([]byte(`42`), &l); err == nil {
		t.Fatalf("expected numeric lookup to be rejected")
	}
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	out, err := json.Marshal(DebtPayment{Amount: decimal.NewFromInt(3000)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"amount":3000}` {
		t.Fatalf("expected numeric amount, got %s", out)
	}
}

func TestSortUnitsPutsBaseFirst(t *testing.T) {
	p := Product{Units: []Unit{
		{Name: "dus", Conversion: 40},
		{Name: "pcs", Conversion: 1},
		{Name: "pak", Conversion: 10},
	}}
	p.SortUnits()
	if p.Units[0].Name != "pcs" || p.Units[2].Name != "dus" {
		t.Fatalf("unexpected order %+v", p.Units)
	}
	base, ok := p.BaseUnit()
	if !ok || base.Name != "pcs" {
		t.Fatalf("expected pcs base unit")
	}
	if _, ok := p.UnitByName("PAK"); !ok {
		t.Fatalf("expected case-insensitive unit lookup")
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Page: 0, Limit: 500, Search: "  mie "}.Normalize()
	if q.Page != 1 || q.Limit != MaxPageLimit || q.Search != "mie" {
		t.Fatalf("unexpected normalized query %+v", q)
	}
}
