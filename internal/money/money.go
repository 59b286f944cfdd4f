// Package money converts between user-entered amounts and the int64 minor
// units (cents) every ledger column is stored in.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal amount such as "1,234.50" or "12" and returns cents.
// Grouping commas are ignored and amounts are rounded half away from zero.
func Parse(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

var printer = message.NewPrinter(language.English)

// Format renders cents as a grouped two-decimal string, e.g. 123456 -> "1,234.56".
// Only the whole units go through the locale printer, so large amounts stay exact.
func Format(cents int64) string {
	d := decimal.New(cents, -2)
	whole := d.Truncate(0)
	fraction := d.Sub(whole).Abs().StringFixed(2)

	sign := ""
	if d.Sign() < 0 {
		sign = "-"
	}

	return sign + printer.Sprintf("%d", whole.Abs().IntPart()) + strings.TrimPrefix(fraction, "0")
}

// Plain renders cents without grouping, suitable for form inputs.
func Plain(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
