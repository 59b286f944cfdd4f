package view

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/supiri/internal/money"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

const dbTimeout = 5 * time.Second

func FormatAmount(cents int64) string {
	return money.Format(cents)
}

func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for storage operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

var statusColors = map[sale.PaymentStatus]string{
	sale.StatusPaid:          "42",
	sale.StatusPartiallyPaid: "214",
	sale.StatusUnpaid:        "196",
}

func formatStatus(s sale.PaymentStatus) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(statusColors[s])).Render(string(s))
}

// parseAmount reads a form amount; blank means zero.
func parseAmount(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	return money.Parse(s)
}

// FormatPlain renders cents without grouping, for prefilled form inputs.
func FormatPlain(cents int64) string {
	return money.Plain(cents)
}
