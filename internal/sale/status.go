package sale

import "math"

// StatusFor applies the payment status rule. A sale with nothing to pay is
// never Paid, even when money was recorded against it.
func StatusFor(paid, final int64) PaymentStatus {
	switch {
	case paid >= final && final > 0:
		return StatusPaid
	case paid > 0 && paid < final:
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// FinalAmount is subtotal less discount plus tax. It fails with
// ErrInvalidArgument when the result does not fit in an int64.
func FinalAmount(subtotal, discount, tax int64) (int64, error) {
	net, ok := add(subtotal, -discount)
	if discount == math.MinInt64 || !ok {
		return 0, invalid("final amount overflows: subtotal %d, discount %d", subtotal, discount)
	}

	final, ok := add(net, tax)
	if !ok {
		return 0, invalid("final amount overflows: %d plus tax %d", net, tax)
	}

	return final, nil
}

// LineTotal is quantity times unit price. It fails with ErrInvalidArgument
// when the product does not fit in an int64.
func LineTotal(quantity, price int64) (int64, error) {
	if quantity < 0 || price < 0 {
		return 0, invalid("quantity %d and price %d must not be negative", quantity, price)
	}

	if price != 0 && quantity > math.MaxInt64/price {
		return 0, invalid("line total of %d x %d overflows", quantity, price)
	}

	return quantity * price, nil
}

// SumAmounts adds amounts, failing with ErrInvalidArgument on overflow.
func SumAmounts(amounts ...int64) (int64, error) {
	var total int64

	for _, a := range amounts {
		next, ok := add(total, a)
		if !ok {
			return 0, invalid("sum of amounts overflows")
		}

		total = next
	}

	return total, nil
}

func add(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}

	return sum, true
}
