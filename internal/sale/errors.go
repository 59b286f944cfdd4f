package sale

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage failure")
	ErrPartialCascade  = errors.New("partial cascade failure")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storageErr classifies a repository error. ErrNotFound passes through so
// callers can still tell a missing record from a failing store.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Cascade stages, in the order Delete runs them.
const (
	StageLineItems = "line_items"
	StagePayments  = "payments"
	StageHeader    = "header"
)

// CascadeError reports a sale deletion that stopped after removing some of
// the sale's records. Calling Delete again with SaleID finishes the job.
type CascadeError struct {
	SaleID  int64
	Stage   string
	Removed int
	Err     error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("deleting sale %d: stopped at %s after removing %d records: %v", e.SaleID, e.Stage, e.Removed, e.Err)
}

func (e *CascadeError) Unwrap() []error {
	return []error{ErrPartialCascade, e.Err}
}
