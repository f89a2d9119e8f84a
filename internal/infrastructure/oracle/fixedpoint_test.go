package oracle_test

import (
	"testing"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/infrastructure/oracle"
	"github.com/stretchr/testify/require"
)

func TestToPrice(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			value    string
			decimals int32
			expected uint64
		}{
			{"60000", 8, 6_000_000_000_000},
			{"60000.123456789", 8, 6_000_012_345_678},
			{"0.5", 2, 50},
			{"1", 0, 1},
			{"0", 8, 0},
		}
		for _, f := range fixtures {
			price, err := oracle.ToPrice(f.value, 1_700_000_000, f.decimals)
			require.NoError(t, err, f.value)
			require.Equal(t, f.expected, price.Value, f.value)
			require.Equal(t, int64(1_700_000_000), price.Timestamp)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			value     string
			timestamp int64
		}{
			{"abc", 1},
			{"-1", 1},
			{"1", 0},
			{"1000000000000000000000000", 1},
		}
		for _, f := range fixtures {
			_, err := oracle.ToPrice(f.value, f.timestamp, oracle.DefaultDecimals)
			require.ErrorIs(t, err, domain.ErrPriceUnavailable, f.value)
		}
	})
}
