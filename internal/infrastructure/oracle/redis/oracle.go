package redisoracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/ark-network/wager/internal/infrastructure/oracle"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "price:"
	priceField     = "price"
	timestampField = "ts"
)

// priceOracle reads quotes that an external feeder keeps in redis hashes
// named price:{asset}, with a decimal price field and a unix ts field.
type priceOracle struct {
	rdb      *redis.Client
	decimals int32
}

func NewPriceOracle(redisUrl string, decimals int32) (ports.PriceOracle, error) {
	opts, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewPriceOracleWithClient(redis.NewClient(opts), decimals), nil
}

func NewPriceOracleWithClient(rdb *redis.Client, decimals int32) ports.PriceOracle {
	return &priceOracle{rdb, decimals}
}

func (o *priceOracle) GetPrice(ctx context.Context, asset string) (domain.Price, error) {
	fields, err := o.rdb.HGetAll(ctx, keyPrefix+asset).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Price{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, err)
	}
	return parseQuote(asset, fields, o.decimals)
}

func (o *priceOracle) Close() {
	//nolint:errcheck
	o.rdb.Close()
}

func parseQuote(asset string, fields map[string]string, decimals int32) (domain.Price, error) {
	value, ok := fields[priceField]
	if !ok {
		return domain.Price{}, fmt.Errorf("%w: no quote for %s", domain.ErrPriceUnavailable, asset)
	}
	ts, err := strconv.ParseInt(fields[timestampField], 10, 64)
	if err != nil {
		return domain.Price{}, fmt.Errorf("%w: invalid timestamp for %s", domain.ErrPriceUnavailable, asset)
	}
	return oracle.ToPrice(value, ts, decimals)
}
