package oracle

import (
	"fmt"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the fixed-point precision of prices.
const DefaultDecimals = 8

// ToPrice converts a decimal quote into a fixed-point price with the given
// number of decimals. Digits past the precision are truncated.
func ToPrice(value string, timestamp int64, decimals int32) (domain.Price, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return domain.Price{}, fmt.Errorf("%w: invalid price %q", domain.ErrPriceUnavailable, value)
	}
	if d.IsNegative() {
		return domain.Price{}, fmt.Errorf("%w: negative price %s", domain.ErrPriceUnavailable, value)
	}
	if timestamp <= 0 {
		return domain.Price{}, fmt.Errorf("%w: missing price timestamp", domain.ErrPriceUnavailable)
	}

	scaled := d.Shift(decimals).Truncate(0)
	if !scaled.BigInt().IsUint64() {
		return domain.Price{}, fmt.Errorf("%w: price %s out of range", domain.ErrPriceUnavailable, value)
	}
	return domain.Price{Value: scaled.BigInt().Uint64(), Timestamp: timestamp}, nil
}
