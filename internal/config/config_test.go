package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               uint32(DefaultPort),
		EventDbType:        "badger",
		DbType:             "badger",
		LedgerType:         "embedded",
		OracleType:         "http",
		OracleUrl:          "http://localhost:9000/prices",
		OracleDecimals:     8,
		FeedType:           "embedded",
		SchedulerType:      "queue",
		LockerType:         "inmemory",
		ArchiveType:        "none",
		ReconcileSchedule:  "@every 30s",
		MaxRetries:         3,
		RetryInterval:      time.Second,
		AbandonGracePeriod: 7 * 24 * 60 * 60,
		InitAdmin:          "admin",
		InitFeeDestination: "treasury",
		InitJoinFeeBps:     50,
		InitClearingFeeBps: 100,
		InitSettleFeeBps:   200,
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	svc, err := cfg.AppService()
	require.NoError(t, err)
	require.NotNil(t, svc)

	adminSvc, err := cfg.AdminService()
	require.NoError(t, err)
	require.NotNil(t, adminSvc)

	handler, err := cfg.LedgerHandler()
	require.NoError(t, err)
	require.NotNil(t, handler)
	require.NotNil(t, cfg.PublicFeed())

	svc.Stop()
	cfg.Close()
}

func TestValidateFailures(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:     "unknown ledger",
			mutate:   func(c *Config) { c.LedgerType = "mainnet" },
			errorMsg: "ledger type not supported",
		},
		{
			name:     "unknown oracle",
			mutate:   func(c *Config) { c.OracleType = "chainlink" },
			errorMsg: "oracle type not supported",
		},
		{
			name:     "unknown db",
			mutate:   func(c *Config) { c.DbType = "mysql" },
			errorMsg: "db type not supported",
		},
		{
			name:     "unknown scheduler",
			mutate:   func(c *Config) { c.SchedulerType = "block" },
			errorMsg: "scheduler type not supported",
		},
		{
			name:     "unknown archive",
			mutate:   func(c *Config) { c.ArchiveType = "gcs" },
			errorMsg: "archive type not supported",
		},
		{
			name:     "remote ledger without url",
			mutate:   func(c *Config) { c.LedgerType = "jsonrpc"; c.FeedType = "websocket"; c.FeedUrl = "ws://localhost" },
			errorMsg: "missing ledger url",
		},
		{
			name:     "embedded feed with remote ledger",
			mutate:   func(c *Config) { c.LedgerType = "jsonrpc"; c.LedgerUrl = "http://localhost:7080/ledger" },
			errorMsg: "embedded feed requires the embedded ledger",
		},
		{
			name:     "websocket feed without url",
			mutate:   func(c *Config) { c.FeedType = "websocket" },
			errorMsg: "missing feed url",
		},
		{
			name:     "http oracle without url",
			mutate:   func(c *Config) { c.OracleUrl = "" },
			errorMsg: "missing oracle url",
		},
		{
			name:     "too many decimals",
			mutate:   func(c *Config) { c.OracleDecimals = 19 },
			errorMsg: "invalid oracle decimals",
		},
		{
			name:     "redis locker without url",
			mutate:   func(c *Config) { c.LockerType = "redis" },
			errorMsg: "missing redis url",
		},
		{
			name:     "no grace period",
			mutate:   func(c *Config) { c.AbandonGracePeriod = 0 },
			errorMsg: "abandon grace period must be positive",
		},
		{
			name:     "invalid bootstrap fees",
			mutate:   func(c *Config) { c.InitSettleFeeBps = 10_001 },
			errorMsg: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tc.errorMsg != "" {
				require.Contains(t, err.Error(), tc.errorMsg)
			}
		})
	}
}

func TestGettersBeforeValidate(t *testing.T) {
	cfg := validConfig()

	_, err := cfg.AppService()
	require.Error(t, err)
	_, err = cfg.AdminService()
	require.Error(t, err)

	handler, err := cfg.LedgerHandler()
	require.NoError(t, err)
	require.Nil(t, handler)
	require.Nil(t, cfg.PublicFeed())
}

func TestSupportedType(t *testing.T) {
	require.True(t, supportedDbs.supports("sqlite"))
	require.False(t, supportedDbs.supports("mysql"))
	require.Equal(t, "badger | postgres | sqlite", supportedDbs.String())
}
