package token

import "fmt"

// add returns a + b. The result must round-trip against both operands
// (a == c-b and b == c-a over the integers); a wrapped sum violates the
// identity and fails with ErrArithmeticOverflow.
func add(a, b int64) (int64, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return c, nil
}

// sub returns a - b under the symmetric round-trip identity, failing with
// ErrArithmeticUnderflow on a wrapped result. Mathematically negative
// results that fit are allowed; callers that need non-negative values
// must check separately.
func sub(a, b int64) (int64, error) {
	c := a - b
	if (b > 0 && c > a) || (b < 0 && c < a) {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticUnderflow, a, b)
	}
	return c, nil
}
