// Package format renders amounts and stock for the cashier and parses what
// the cashier types back.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
)

var printer = message.NewPrinter(language.Indonesian)

// Currency renders a rupiah amount rounded to whole rupiah: "Rp 20.000".
func Currency(amount domain.Money) string {
	whole := amount.Round(0)
	if whole.IsNegative() {
		return "-Rp " + printer.Sprintf("%d", whole.Neg().IntPart())
	}
	return "Rp " + printer.Sprintf("%d", whole.IntPart())
}

// ParseAmount reads an operator-entered amount. Dots group thousands and a
// comma marks decimals, so "25.000", "Rp 25.000" and "12,5" are all valid.
// An empty input is zero.
func ParseAmount(input string) (domain.Money, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, poserr.Newf(poserr.CodeValidation, "nominal tidak valid: %q", input).
			WithDetails(map[string]string{"amount": "invalid"})
	}
	return amount, nil
}
