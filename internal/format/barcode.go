package format

import (
	"strings"

	"tokoku/client/internal/domain"
)

// BarcodeMatch is a barcode resolved against the cached product list.
type BarcodeMatch struct {
	Product       domain.Product
	Unit          domain.Unit
	DistributorID string
}

// FindByBarcode looks code up in the distributor barcodes of products. A
// barcode without a unit binding resolves to the base unit.
func FindByBarcode(products []domain.Product, code string) (BarcodeMatch, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return BarcodeMatch{}, false
	}
	for _, p := range products {
		for _, d := range p.Distributors {
			for _, b := range d.Barcodes {
				if b.Barcode != code {
					continue
				}
				unit, ok := p.UnitByID(b.UnitID)
				if !ok {
					unit, ok = p.BaseUnit()
				}
				if !ok {
					continue
				}
				return BarcodeMatch{Product: p, Unit: unit, DistributorID: d.DistributorID}, true
			}
		}
	}
	return BarcodeMatch{}, false
}
