package continuation

import (
	"fmt"
	"strconv"

	"github.com/luma/ibzmq/protocol"
)

// ParseCount parses a gating field. The empty string means zero.
func ParseCount(field string) (int, error) {
	if field == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(field)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidCount, field)
	}

	return n, nil
}

func fieldAt(head []string, i int) (string, error) {
	if i < 0 || i >= len(head) {
		return "", fmt.Errorf("%w: %d of %d", ErrGateOutOfRange, i, len(head))
	}

	return head[i], nil
}

// CountAt extends a segment by head[i] * multiplier fields.
func CountAt(i, multiplier int) func([]string) (int, error) {
	return func(head []string) (int, error) {
		field, err := fieldAt(head, i)
		if err != nil {
			return 0, err
		}

		n, err := ParseCount(field)
		if err != nil {
			return 0, err
		}

		return n * multiplier, nil
	}
}

// FlagAt extends a segment by n fields when head[i] is not empty.
func FlagAt(i, n int) func([]string) (int, error) {
	return func(head []string) (int, error) {
		field, err := fieldAt(head, i)
		if err != nil {
			return 0, err
		}

		if field == "" {
			return 0, nil
		}

		return n, nil
	}
}

// NonZeroAt extends a segment by n fields when head[i] is a non-zero count.
func NonZeroAt(i, n int) func([]string) (int, error) {
	return func(head []string) (int, error) {
		field, err := fieldAt(head, i)
		if err != nil {
			return 0, err
		}

		c, err := ParseCount(field)
		if err != nil || c == 0 {
			return 0, err
		}

		return n, nil
	}
}

// PriceSetAt extends a segment by n fields when head[i] holds a price, that
// is anything other than empty, zero or the unset sentinel.
func PriceSetAt(i, n int) func([]string) (int, error) {
	return func(head []string) (int, error) {
		field, err := fieldAt(head, i)
		if err != nil {
			return 0, err
		}

		switch field {
		case "", "0.0", protocol.MaxDouble:
			return 0, nil
		}

		return n, nil
	}
}

// PresentAt holds when head[i] is not empty.
func PresentAt(i int) func([]string) (bool, error) {
	return func(head []string) (bool, error) {
		field, err := fieldAt(head, i)
		if err != nil {
			return false, err
		}

		return field != "", nil
	}
}
