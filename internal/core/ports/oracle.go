package ports

import (
	"context"

	"github.com/ark-network/wager/internal/core/domain"
)

// PriceOracle resolves the current fixed-point price of an asset. It fails
// with domain.ErrPriceUnavailable rather than returning a substitute value.
type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) (domain.Price, error)
	Close()
}
