package customer

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("customer not found")
	ErrInvalid  = errors.New("invalid customer")
)

// Customer is a buyer referenced by sales. Deleting one leaves its sales in place.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
