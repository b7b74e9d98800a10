// Package productform keeps the state of the product create/edit form and
// enforces the rules that are checked before anything is sent.
package productform

import (
	"sort"
	"strings"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

type Form struct {
	SKU      string
	Name     string
	MinStock int

	units        []domain.Unit
	distributors []domain.ProductDistributor
}

// New starts an empty form with a base unit named baseUnit.
func New(baseUnit string) *Form {
	if strings.TrimSpace(baseUnit) == "" {
		baseUnit = "pcs"
	}
	return &Form{units: []domain.Unit{{Name: baseUnit, Conversion: 1}}}
}

// FromProduct loads an existing product for editing.
func FromProduct(p domain.Product) *Form {
	f := &Form{SKU: p.SKU, Name: p.Name, MinStock: p.MinStock}
	f.units = append(f.units, p.Units...)
	for _, d := range p.Distributors {
		d.Barcodes = append([]domain.Barcode(nil), d.Barcodes...)
		f.distributors = append(f.distributors, d)
	}
	f.sortUnits()
	return f
}

func fieldError(field, message string) error {
	return poserr.New(poserr.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func (f *Form) Units() []domain.Unit {
	return append([]domain.Unit(nil), f.units...)
}

func (f *Form) Distributors() []domain.ProductDistributor {
	out := make([]domain.ProductDistributor, len(f.distributors))
	for i, d := range f.distributors {
		d.Barcodes = append([]domain.Barcode(nil), d.Barcodes...)
		out[i] = d
	}
	return out
}

// AddUnit appends a larger packaging unit. Only the base unit may have
// conversion 1 and names are unique regardless of case.
func (f *Form) AddUnit(name string, conversion int, price domain.Money) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fieldError("units", "nama satuan wajib diisi")
	}
	if conversion <= 1 {
		return fieldError("units", "konversi satuan tambahan harus lebih dari 1")
	}
	if _, ok := f.unit(name); ok {
		return fieldError("units", "satuan "+name+" sudah ada")
	}
	f.units = append(f.units, domain.Unit{Name: name, Conversion: conversion, Price: price})
	f.sortUnits()
	return nil
}

func (f *Form) SetUnitPrice(name string, price domain.Money) error {
	for i := range f.units {
		if strings.EqualFold(f.units[i].Name, name) {
			f.units[i].Price = price
			return nil
		}
	}
	return fieldError("units", "satuan "+name+" tidak ditemukan")
}

// RemoveUnit drops a non-base unit and any barcode bound to it.
func (f *Form) RemoveUnit(name string) error {
	for i, u := range f.units {
		if !strings.EqualFold(u.Name, name) {
			continue
		}
		if u.Conversion == 1 {
			return fieldError("units", "satuan dasar tidak bisa dihapus")
		}
		f.units = append(f.units[:i], f.units[i+1:]...)
		if u.ID != "" {
			for d := range f.distributors {
				kept := f.distributors[d].Barcodes[:0]
				for _, b := range f.distributors[d].Barcodes {
					if b.UnitID != u.ID {
						kept = append(kept, b)
					}
				}
				f.distributors[d].Barcodes = kept
			}
		}
		return nil
	}
	return fieldError("units", "satuan "+name+" tidak ditemukan")
}

// AddDistributor links a distributor. The first one becomes the default.
func (f *Form) AddDistributor(distributorID string) error {
	if distributorID == "" {
		return fieldError("distributors", "distributor wajib dipilih")
	}
	if f.distributorIndex(distributorID) >= 0 {
		return fieldError("distributors", "distributor sudah ditambahkan")
	}
	f.distributors = append(f.distributors, domain.ProductDistributor{
		DistributorID: distributorID,
		IsDefault:     len(f.distributors) == 0,
	})
	return nil
}

// RemoveDistributor unlinks a distributor. Removing the default promotes the
// first remaining one.
func (f *Form) RemoveDistributor(distributorID string) {
	idx := f.distributorIndex(distributorID)
	if idx < 0 {
		return
	}
	wasDefault := f.distributors[idx].IsDefault
	f.distributors = append(f.distributors[:idx], f.distributors[idx+1:]...)
	if wasDefault && len(f.distributors) > 0 {
		f.distributors[0].IsDefault = true
	}
}

// SetDefaultDistributor makes exactly one distributor the default.
func (f *Form) SetDefaultDistributor(distributorID string) error {
	idx := f.distributorIndex(distributorID)
	if idx < 0 {
		return fieldError("distributors", "distributor tidak ditemukan")
	}
	for i := range f.distributors {
		f.distributors[i].IsDefault = i == idx
	}
	return nil
}

// AddBarcode binds code to a distributor and unit. A barcode may appear only
// once in the whole form.
func (f *Form) AddBarcode(distributorID, code, unitName string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fieldError("barcode", "barcode wajib diisi")
	}
	idx := f.distributorIndex(distributorID)
	if idx < 0 {
		return fieldError("distributors", "distributor tidak ditemukan")
	}
	if owner, ok := f.barcodeOwner(code); ok {
		return fieldError("barcode", "barcode "+code+" sudah dipakai di distributor "+owner)
	}
	unit, ok := f.unit(unitName)
	if !ok {
		return fieldError("units", "satuan "+unitName+" tidak ditemukan")
	}
	f.distributors[idx].Barcodes = append(f.distributors[idx].Barcodes, domain.Barcode{Barcode: code, UnitID: unit.ID})
	return nil
}

func (f *Form) RemoveBarcode(code string) {
	for d := range f.distributors {
		kept := f.distributors[d].Barcodes[:0]
		for _, b := range f.distributors[d].Barcodes {
			if b.Barcode != code {
				kept = append(kept, b)
			}
		}
		f.distributors[d].Barcodes = kept
	}
}

// Validate runs the tag checks and the unit and distributor invariants.
func (f *Form) Validate() error {
	_, err := f.Request()
	return err
}

// Request builds the payload once the form is valid.
func (f *Form) Request() (domain.ProductInput, error) {
	in := domain.ProductInput{
		SKU:          strings.TrimSpace(f.SKU),
		Name:         strings.TrimSpace(f.Name),
		MinStock:     f.MinStock,
		Units:        f.Units(),
		Distributors: f.Distributors(),
	}
	if err := domain.Validate(in); err != nil {
		return domain.ProductInput{}, err
	}

	base := 0
	for _, u := range in.Units {
		if u.Conversion == 1 {
			base++
		}
		if u.Price.IsNegative() {
			return domain.ProductInput{}, fieldError("units", "harga "+u.Name+" tidak boleh negatif")
		}
	}
	if base != 1 {
		return domain.ProductInput{}, fieldError("units", "harus ada tepat satu satuan dasar")
	}
	if len(in.Distributors) > 0 {
		defaults := 0
		for _, d := range in.Distributors {
			if d.IsDefault {
				defaults++
			}
		}
		if defaults != 1 {
			return domain.ProductInput{}, fieldError("distributors", "harus ada tepat satu distributor utama")
		}
	}
	return in, nil
}

func (f *Form) unit(name string) (domain.Unit, bool) {
	for _, u := range f.units {
		if strings.EqualFold(u.Name, strings.TrimSpace(name)) {
			return u, true
		}
	}
	return domain.Unit{}, false
}

func (f *Form) distributorIndex(id string) int {
	for i, d := range f.distributors {
		if d.DistributorID == id {
			return i
		}
	}
	return -1
}

func (f *Form) barcodeOwner(code string) (string, bool) {
	for _, d := range f.distributors {
		for _, b := range d.Barcodes {
			if b.Barcode == code {
				return d.DistributorID, true
			}
		}
	}
	return "", false
}

func (f *Form) sortUnits() {
	sort.SliceStable(f.units, func(i, j int) bool {
		return f.units[i].Conversion < f.units[j].Conversion
	})
}
