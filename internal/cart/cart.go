// Package cart holds the sales cart and the arithmetic derived from it.
// Nothing here talks to the backend; totals are recomputed from the lines on
// every call.
package cart

import (
	"github.com/shopspring/decimal"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

// Key identifies a cart line. The same product and unit from two
// distributors are two lines.
type Key struct {
	ProductID     string
	UnitName      string
	DistributorID string
}

type Line struct {
	ProductID     string
	Name          string
	UnitName      string
	UnitPrice     domain.Money
	Conversion    int
	Quantity      int
	DistributorID string
	// Stock is the product's base-unit stock when the line was last added to.
	Stock int
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, UnitName: l.UnitName, DistributorID: l.DistributorID}
}

func (l Line) Amount() domain.Money {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Item is the wire form of the line.
func (l Line) Item() domain.TransactionItem {
	return domain.TransactionItem{
		ProductID:     l.ProductID,
		Name:          l.Name,
		UnitName:      l.UnitName,
		Price:         l.UnitPrice,
		Conversion:    l.Conversion,
		Quantity:      l.Quantity,
		DistributorID: l.DistributorID,
	}
}

// Cart is not safe for concurrent use; the register serializes access.
type Cart struct {
	lines []Line
}

func errInsufficientStock(name string, need, stock int) error {
	return poserr.Newf(poserr.CodePrecondition, "stok %s tidak cukup (butuh %d, tersedia %d)", name, need, stock).
		WithDetails(map[string]string{"stock": "insufficient"})
}

// Add puts one unit of product into the cart. The add is rejected, leaving
// the cart untouched, when the quantity for the key would need more base
// units than the product has.
func (c *Cart) Add(product domain.Product, unit domain.Unit, distributorID string) (Line, error) {
	if unit.Conversion < 1 {
		return Line{}, poserr.Newf(poserr.CodeValidation, "satuan %q tidak valid", unit.Name)
	}
	key := Key{ProductID: product.ID, UnitName: unit.Name, DistributorID: distributorID}
	idx := c.index(key)
	existing := 0
	if idx >= 0 {
		existing = c.lines[idx].Quantity
	}
	need := (existing + 1) * unit.Conversion
	if need > product.Stock {
		return Line{}, errInsufficientStock(product.Name, need, product.Stock)
	}

	if idx >= 0 {
		c.lines[idx].Quantity++
		c.lines[idx].Stock = product.Stock
		return c.lines[idx], nil
	}
	line := Line{
		ProductID:     product.ID,
		Name:          product.Name,
		UnitName:      unit.Name,
		UnitPrice:     unit.Price,
		Conversion:    unit.Conversion,
		Quantity:      1,
		DistributorID: distributorID,
		Stock:         product.Stock,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// Increment adds one to an existing line under the same stock guard.
func (c *Cart) Increment(key Key) error {
	idx := c.index(key)
	if idx < 0 {
		return poserr.New(poserr.CodeNotFound, "item tidak ada di keranjang")
	}
	return c.SetQuantity(key, c.lines[idx].Quantity+1)
}

// Decrement removes one, dropping the line at zero.
func (c *Cart) Decrement(key Key) error {
	idx := c.index(key)
	if idx < 0 {
		return poserr.New(poserr.CodeNotFound, "item tidak ada di keranjang")
	}
	return c.SetQuantity(key, c.lines[idx].Quantity-1)
}

// SetQuantity sets a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(key Key, qty int) error {
	idx := c.index(key)
	if idx < 0 {
		return poserr.New(poserr.CodeNotFound, "item tidak ada di keranjang")
	}
	if qty <= 0 {
		c.removeAt(idx)
		return nil
	}
	line := c.lines[idx]
	if need := qty * line.Conversion; qty > line.Quantity && need > line.Stock {
		return errInsufficientStock(line.Name, need, line.Stock)
	}
	c.lines[idx].Quantity = qty
	return nil
}

func (c *Cart) Remove(key Key) {
	if idx := c.index(key); idx >= 0 {
		c.removeAt(idx)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) index(key Key) int {
	for i, l := range c.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}
