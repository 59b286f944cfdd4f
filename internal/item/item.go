package item

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("item not found")
	ErrInvalid  = errors.New("invalid item")
)

// Item is a sellable inventory entry. Sales snapshot Price at the time of sale.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       int64 // Selling price in cents
	CostPrice   int64 // Cost in cents
	Quantity    int64 // On hand
	Category    string
	SKU         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
