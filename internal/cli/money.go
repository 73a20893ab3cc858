package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// money formats amounts in the configured currency and locale.
type money struct {
	unit    currency.Unit
	printer *message.Printer
}

func newMoney(code, locale string) (money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return money{}, fmt.Errorf("currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return money{}, fmt.Errorf("locale %q: %w", locale, err)
	}
	return money{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// Format renders d with the currency symbol, for display only.
func (m money) Format(d decimal.Decimal) string {
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(d.Round(2).InexactFloat64())))
}

// parseAmount reads a user-typed amount. A comma is taken as the decimal
// separator, in which case dots are thousands separators ("1.234,56").
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
