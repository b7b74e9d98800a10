package format

import (
	"sort"
	"strconv"
	"strings"

	"tokoku/client/internal/domain"
)

// StockPart is one "<count> <unit>" segment of a stock display.
type StockPart struct {
	Count      int
	Unit       string
	Conversion int
}

// StockParts splits a base-unit quantity greedily over the units, largest
// conversion first. Units with a non-positive conversion are ignored. A
// remainder that no unit can absorb is reported with the smallest unit's name
// and conversion 1.
func StockParts(stock int, units []domain.Unit) []StockPart {
	sorted := usableUnits(units)
	if stock <= 0 || len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Conversion > sorted[j].Conversion
	})

	var parts []StockPart
	remaining := stock
	for _, u := range sorted {
		count := remaining / u.Conversion
		if count > 0 {
			parts = append(parts, StockPart{Count: count, Unit: u.Name, Conversion: u.Conversion})
		}
		remaining %= u.Conversion
	}
	if remaining > 0 {
		smallest := sorted[len(sorted)-1]
		parts = append(parts, StockPart{Count: remaining, Unit: smallest.Name, Conversion: 1})
	}
	return parts
}

// StockDisplay renders a base-unit quantity as "2 dus 3 pcs".
func StockDisplay(stock int, units []domain.Unit) string {
	if stock < 0 {
		return "-" + StockDisplay(-stock, units)
	}
	parts := StockParts(stock, units)
	if len(parts) == 0 {
		return "0 " + smallestUnitName(units)
	}
	segments := make([]string, len(parts))
	for i, p := range parts {
		segments[i] = strconv.Itoa(p.Count) + " " + p.Unit
	}
	return strings.Join(segments, " ")
}

// Reconstruct sums a split back into base units.
func Reconstruct(parts []StockPart) int {
	total := 0
	for _, p := range parts {
		total += p.Count * p.Conversion
	}
	return total
}

func usableUnits(units []domain.Unit) []domain.Unit {
	out := make([]domain.Unit, 0, len(units))
	for _, u := range units {
		if u.Conversion > 0 {
			out = append(out, u)
		}
	}
	return out
}

func smallestUnitName(units []domain.Unit) string {
	name, best := "unit", 0
	for _, u := range usableUnits(units) {
		if best == 0 || u.Conversion < best {
			name, best = u.Name, u.Conversion
		}
	}
	return name
}
