package httporacle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/ark-network/wager/internal/infrastructure/oracle"
	"golang.org/x/time/rate"
)

const requestTimeout = 10 * time.Second

type priceResponse struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// priceOracle reads quotes from GET {baseUrl}/{asset}.
type priceOracle struct {
	baseUrl  string
	decimals int32
	client   *http.Client
	limiter  *rate.Limiter
}

// NewPriceOracle returns an oracle doing at most ratePerSec requests per
// second. A non positive rate disables the limit.
func NewPriceOracle(baseUrl string, decimals int32, ratePerSec float64) (ports.PriceOracle, error) {
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid oracle url: %w", err)
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &priceOracle{
		baseUrl:  baseUrl,
		decimals: decimals,
		client:   &http.Client{Timeout: requestTimeout},
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

func (o *priceOracle) GetPrice(ctx context.Context, asset string) (domain.Price, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return domain.Price{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, err)
	}

	endpoint, err := url.JoinPath(o.baseUrl, url.PathEscape(asset))
	if err != nil {
		return domain.Price{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Price{}, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return domain.Price{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Price{}, fmt.Errorf(
			"%w: oracle returned status %d for %s", domain.ErrPriceUnavailable, resp.StatusCode, asset,
		)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Price{}, fmt.Errorf("%w: malformed response: %s", domain.ErrPriceUnavailable, err)
	}
	return oracle.ToPrice(body.Price, body.Timestamp, o.decimals)
}

func (o *priceOracle) Close() {
	o.client.CloseIdleConnections()
}
