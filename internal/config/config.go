package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	s3archive "github.com/ark-network/wager/internal/infrastructure/archive/s3"
	"github.com/ark-network/wager/internal/infrastructure/db"
	watermillfeed "github.com/ark-network/wager/internal/infrastructure/feed/watermill"
	wsfeed "github.com/ark-network/wager/internal/infrastructure/feed/websocket"
	embeddedledger "github.com/ark-network/wager/internal/infrastructure/ledger/embedded"
	jsonrpcledger "github.com/ark-network/wager/internal/infrastructure/ledger/jsonrpc"
	inmemorylocker "github.com/ark-network/wager/internal/infrastructure/locker/inmemory"
	redislocker "github.com/ark-network/wager/internal/infrastructure/locker/redis"
	httporacle "github.com/ark-network/wager/internal/infrastructure/oracle/http"
	redisoracle "github.com/ark-network/wager/internal/infrastructure/oracle/redis"
	timescheduler "github.com/ark-network/wager/internal/infrastructure/scheduler/gocron"
	queuescheduler "github.com/ark-network/wager/internal/infrastructure/scheduler/queue"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedEventDbs = supportedType{
		"badger": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedLedgers = supportedType{
		"embedded": {},
		"jsonrpc":  {},
	}
	supportedOracles = supportedType{
		"http":  {},
		"redis": {},
	}
	supportedFeeds = supportedType{
		"embedded":  {},
		"websocket": {},
	}
	supportedSchedulers = supportedType{
		"queue":  {},
		"gocron": {},
	}
	supportedLockers = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedArchives = supportedType{
		"none": {},
		"s3":   {},
	}
)

type Config struct {
	Datadir        string
	Port           uint32
	LogLevel       int
	EventDbType    string
	DbType         string
	DbDir          string
	EventDbDir     string
	DbUrl          string
	LedgerType     string
	LedgerUrl      string
	OracleType     string
	OracleUrl      string
	OracleDecimals int32
	// OracleRateLimit is the max number of price requests per second.
	OracleRateLimit   float64
	FeedType          string
	FeedUrl           string
	SchedulerType     string
	LockerType        string
	RedisUrl          string
	ArchiveType       string
	S3                s3archive.Config
	ReconcileSchedule string
	ResolverId        string
	MaxRetries        uint64
	RetryInterval     time.Duration
	// AbandonGracePeriod is expressed in seconds.
	AbandonGracePeriod int64
	AdminUser          string
	AdminPass          string

	// Used only to bootstrap an empty embedded ledger.
	InitAdmin          string
	InitFeeDestination string
	InitCreateFee      uint64
	InitJoinFeeBps     uint16
	InitClearingFeeBps uint16
	InitSettleFeeBps   uint16

	repo        ports.RepoManager
	publicFeed  *watermillfeed.Feed
	ledger      ports.LedgerGateway
	oracle      ports.PriceOracle
	locker      ports.Locker
	archive     ports.SettlementArchive
	scheduler   ports.SchedulerService
	creations   ports.CreationFeed
	coordinator *application.SettlementCoordinator
	expiry      *application.ExpiryScheduler
	svc         application.Service
	adminSvc    application.AdminService
}

var (
	Datadir            = "DATADIR"
	Port               = "PORT"
	LogLevel           = "LOG_LEVEL"
	EventDbType        = "EVENT_DB_TYPE"
	DbType             = "DB_TYPE"
	DbUrl              = "DB_URL"
	LedgerType         = "LEDGER_TYPE"
	LedgerUrl          = "LEDGER_URL"
	OracleType         = "ORACLE_TYPE"
	OracleUrl          = "ORACLE_URL"
	OracleDecimals     = "ORACLE_DECIMALS"
	OracleRateLimit    = "ORACLE_RATE_LIMIT"
	FeedType           = "FEED_TYPE"
	FeedUrl            = "FEED_URL"
	SchedulerType      = "SCHEDULER_TYPE"
	LockerType         = "LOCKER_TYPE"
	RedisUrl           = "REDIS_URL"
	ArchiveType        = "ARCHIVE_TYPE"
	S3Endpoint         = "S3_ENDPOINT"
	S3Region           = "S3_REGION"
	S3Bucket           = "S3_BUCKET"
	S3AccessKey        = "S3_ACCESS_KEY"
	S3SecretKey        = "S3_SECRET_KEY"
	ReconcileSchedule  = "RECONCILE_SCHEDULE"
	ResolverId         = "RESOLVER_ID"
	MaxRetries         = "MAX_RETRIES"
	RetryInterval      = "RETRY_INTERVAL"
	AbandonGracePeriod = "ABANDON_GRACE_PERIOD"
	AdminUser          = "ADMIN_USER"
	AdminPass          = "ADMIN_PASS"
	InitAdmin          = "INIT_ADMIN"
	InitFeeDestination = "INIT_FEE_DESTINATION"
	InitCreateFee      = "INIT_CREATE_FEE"
	InitJoinFeeBps     = "INIT_JOIN_FEE_BPS"
	InitClearingFeeBps = "INIT_CLEARING_FEE_BPS"
	InitSettleFeeBps   = "INIT_SETTLE_FEE_BPS"

	defaultDatadir            = btcutil.AppDataDir("wagerd", false)
	DefaultPort               = 7080
	defaultLogLevel           = 4
	defaultEventDbType        = "badger"
	defaultDbType             = "sqlite"
	defaultLedgerType         = "embedded"
	defaultOracleType         = "http"
	defaultOracleDecimals     = 8
	defaultOracleRateLimit    = 5
	defaultFeedType           = "embedded"
	defaultSchedulerType      = "queue"
	defaultLockerType         = "inmemory"
	defaultArchiveType        = "none"
	defaultReconcileSchedule  = "@every 30s"
	defaultMaxRetries         = 3
	defaultRetryInterval      = 2 * time.Second
	defaultAbandonGracePeriod = 7 * 24 * 60 * 60
	defaultInitCreateFee      = 0
)

func LoadConfig() (*Config, error) {
	// A missing .env file is not an error, the environment wins anyway.
	_ = godotenv.Load()

	viper.SetEnvPrefix("WAGER")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(EventDbType, defaultEventDbType)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LedgerType, defaultLedgerType)
	viper.SetDefault(OracleType, defaultOracleType)
	viper.SetDefault(OracleDecimals, defaultOracleDecimals)
	viper.SetDefault(OracleRateLimit, defaultOracleRateLimit)
	viper.SetDefault(FeedType, defaultFeedType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(LockerType, defaultLockerType)
	viper.SetDefault(ArchiveType, defaultArchiveType)
	viper.SetDefault(ReconcileSchedule, defaultReconcileSchedule)
	viper.SetDefault(MaxRetries, defaultMaxRetries)
	viper.SetDefault(RetryInterval, defaultRetryInterval)
	viper.SetDefault(AbandonGracePeriod, defaultAbandonGracePeriod)
	viper.SetDefault(InitCreateFee, defaultInitCreateFee)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	var dbUrl string
	if viper.GetString(DbType) == "postgres" {
		dbUrl = viper.GetString(DbUrl)
		if dbUrl == "" {
			return nil, fmt.Errorf("DB_URL not provided")
		}
	}

	return &Config{
		Datadir:            viper.GetString(Datadir),
		Port:               viper.GetUint32(Port),
		LogLevel:           viper.GetInt(LogLevel),
		EventDbType:        viper.GetString(EventDbType),
		DbType:             viper.GetString(DbType),
		DbDir:              dbPath,
		EventDbDir:         dbPath,
		DbUrl:              dbUrl,
		LedgerType:         viper.GetString(LedgerType),
		LedgerUrl:          viper.GetString(LedgerUrl),
		OracleType:         viper.GetString(OracleType),
		OracleUrl:          viper.GetString(OracleUrl),
		OracleDecimals:     viper.GetInt32(OracleDecimals),
		OracleRateLimit:    viper.GetFloat64(OracleRateLimit),
		FeedType:           viper.GetString(FeedType),
		FeedUrl:            viper.GetString(FeedUrl),
		SchedulerType:      viper.GetString(SchedulerType),
		LockerType:         viper.GetString(LockerType),
		RedisUrl:           viper.GetString(RedisUrl),
		ArchiveType:        viper.GetString(ArchiveType),
		ReconcileSchedule:  viper.GetString(ReconcileSchedule),
		ResolverId:         viper.GetString(ResolverId),
		MaxRetries:         viper.GetUint64(MaxRetries),
		RetryInterval:      viper.GetDuration(RetryInterval),
		AbandonGracePeriod: viper.GetInt64(AbandonGracePeriod),
		AdminUser:          viper.GetString(AdminUser),
		AdminPass:          viper.GetString(AdminPass),
		InitAdmin:          viper.GetString(InitAdmin),
		InitFeeDestination: viper.GetString(InitFeeDestination),
		InitCreateFee:      viper.GetUint64(InitCreateFee),
		InitJoinFeeBps:     viper.GetUint16(InitJoinFeeBps),
		InitClearingFeeBps: viper.GetUint16(InitClearingFeeBps),
		InitSettleFeeBps:   viper.GetUint16(InitSettleFeeBps),
		S3: s3archive.Config{
			Endpoint:  viper.GetString(S3Endpoint),
			Region:    viper.GetString(S3Region),
			Bucket:    viper.GetString(S3Bucket),
			AccessKey: viper.GetString(S3AccessKey),
			SecretKey: viper.GetString(S3SecretKey),
		},
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// Validate checks the settings and builds every service. It must be called
// before any of the getters.
func (c *Config) Validate() error {
	if err := c.check(); err != nil {
		return err
	}

	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.creationFeed(); err != nil {
		return err
	}
	if err := c.oracleService(); err != nil {
		return err
	}
	if err := c.lockerService(); err != nil {
		return err
	}
	if err := c.archiveService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	c.coordinatorService()
	if err := c.appService(); err != nil {
		return err
	}
	return c.adminService()
}

func (c *Config) check() error {
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf("ledger type not supported, please select one of: %s", supportedLedgers)
	}
	if !supportedOracles.supports(c.OracleType) {
		return fmt.Errorf("oracle type not supported, please select one of: %s", supportedOracles)
	}
	if !supportedFeeds.supports(c.FeedType) {
		return fmt.Errorf("feed type not supported, please select one of: %s", supportedFeeds)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedLockers.supports(c.LockerType) {
		return fmt.Errorf("locker type not supported, please select one of: %s", supportedLockers)
	}
	if !supportedArchives.supports(c.ArchiveType) {
		return fmt.Errorf("archive type not supported, please select one of: %s", supportedArchives)
	}

	if c.LedgerType == "embedded" {
		if !supportedEventDbs.supports(c.EventDbType) {
			return fmt.Errorf("event db type not supported, please select one of: %s", supportedEventDbs)
		}
		if !supportedDbs.supports(c.DbType) {
			return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
		}
	} else if c.LedgerUrl == "" {
		return fmt.Errorf("missing ledger url")
	}

	if c.OracleUrl == "" && (c.OracleType == "http" || c.RedisUrl == "") {
		return fmt.Errorf("missing oracle url")
	}
	if c.OracleDecimals < 0 || c.OracleDecimals > 18 {
		return fmt.Errorf("invalid oracle decimals, must be in range [0, 18]")
	}
	if c.FeedType == "websocket" && c.FeedUrl == "" {
		return fmt.Errorf("missing feed url")
	}
	if c.FeedType == "embedded" && c.LedgerType != "embedded" {
		return fmt.Errorf("embedded feed requires the embedded ledger")
	}
	if c.LockerType == "redis" && c.RedisUrl == "" {
		return fmt.Errorf("missing redis url")
	}
	if c.ReconcileSchedule == "" {
		return fmt.Errorf("missing reconcile schedule")
	}
	if c.AbandonGracePeriod <= 0 {
		return fmt.Errorf("abandon grace period must be positive")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive")
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() (application.AdminService, error) {
	if c.adminSvc == nil {
		if err := c.adminService(); err != nil {
			return nil, err
		}
	}
	return c.adminSvc, nil
}

// LedgerHandler exposes the embedded ledger over JSON-RPC so that other
// instances can run with LEDGER_TYPE=jsonrpc. It is nil for remote ledgers.
func (c *Config) LedgerHandler() (http.Handler, error) {
	if c.LedgerType != "embedded" || c.ledger == nil {
		return nil, nil
	}
	return jsonrpcledger.NewServer(c.ledger)
}

// PublicFeed is the stream of creations announced by the embedded ledger,
// nil for remote ledgers.
func (c *Config) PublicFeed() ports.CreationFeed {
	if c.publicFeed == nil {
		return nil
	}
	return c.publicFeed
}

// Close releases the adapters not owned by the app service.
func (c *Config) Close() {
	if c.oracle != nil {
		c.oracle.Close()
	}
	if c.locker != nil {
		if err := c.locker.Close(); err != nil {
			log.WithError(err).Warn("failed to close locker")
		}
	}
	if c.publicFeed != nil {
		if err := c.publicFeed.Close(); err != nil {
			log.WithError(err).Warn("failed to close creation feed")
		}
	}
}

func (c *Config) String() string {
	settings := []string{
		fmt.Sprintf("datadir: %s", c.Datadir),
		fmt.Sprintf("port: %d", c.Port),
		fmt.Sprintf("ledger: %s", c.LedgerType),
		fmt.Sprintf("oracle: %s", c.OracleType),
		fmt.Sprintf("feed: %s", c.FeedType),
		fmt.Sprintf("scheduler: %s", c.SchedulerType),
		fmt.Sprintf("locker: %s", c.LockerType),
		fmt.Sprintf("archive: %s", c.ArchiveType),
		fmt.Sprintf("reconcile schedule: %s", c.ReconcileSchedule),
		fmt.Sprintf("max retries: %d", c.MaxRetries),
		fmt.Sprintf("retry interval: %s", c.RetryInterval),
		fmt.Sprintf("abandon grace period: %ds", c.AbandonGracePeriod),
	}
	if c.LedgerType == "embedded" {
		settings = append(settings,
			fmt.Sprintf("event db: %s", c.EventDbType),
			fmt.Sprintf("db: %s", c.DbType),
		)
	} else {
		settings = append(settings, fmt.Sprintf("ledger url: %s", c.LedgerUrl))
	}
	return strings.Join(settings, "\n")
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) ledgerService() error {
	switch c.LedgerType {
	case "embedded":
		if err := c.repoManager(); err != nil {
			return err
		}
		bootstrap, err := c.bootstrapFeeConfig()
		if err != nil {
			return err
		}
		c.publicFeed = watermillfeed.NewFeed()
		svc, err := embeddedledger.NewLedger(c.repo, c.publicFeed, embeddedledger.Config{
			AbandonGracePeriod: c.AbandonGracePeriod,
			Bootstrap:          bootstrap,
		})
		if err != nil {
			return err
		}
		c.ledger = svc
	case "jsonrpc":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc, err := jsonrpcledger.NewLedger(ctx, c.LedgerUrl)
		if err != nil {
			return err
		}
		c.ledger = svc
	default:
		return fmt.Errorf("unknown ledger type")
	}
	return nil
}

// bootstrapFeeConfig returns nil when no initial admin is configured, in
// which case the ledger must already hold a fee config.
func (c *Config) bootstrapFeeConfig() (*domain.FeeConfig, error) {
	if c.InitAdmin == "" {
		return nil, nil
	}
	return domain.NewFeeConfig(
		c.InitAdmin, c.InitFeeDestination, c.ResolverId, c.InitCreateFee,
		c.InitJoinFeeBps, c.InitClearingFeeBps, c.InitSettleFeeBps,
	)
}

func (c *Config) creationFeed() error {
	switch c.FeedType {
	case "embedded":
		c.creations = c.publicFeed
	case "websocket":
		svc, err := wsfeed.NewFeed(c.FeedUrl)
		if err != nil {
			return err
		}
		c.creations = svc
	default:
		return fmt.Errorf("unknown feed type")
	}
	return nil
}

func (c *Config) oracleService() error {
	var svc ports.PriceOracle
	var err error

	switch c.OracleType {
	case "http":
		svc, err = httporacle.NewPriceOracle(c.OracleUrl, c.OracleDecimals, c.OracleRateLimit)
	case "redis":
		url := c.OracleUrl
		if url == "" {
			url = c.RedisUrl
		}
		svc, err = redisoracle.NewPriceOracle(url, c.OracleDecimals)
	default:
		err = fmt.Errorf("unknown oracle type")
	}
	if err != nil {
		return err
	}

	c.oracle = svc
	return nil
}

func (c *Config) lockerService() error {
	switch c.LockerType {
	case "inmemory":
		c.locker = inmemorylocker.NewLocker()
	case "redis":
		svc, err := redislocker.NewLocker(c.RedisUrl)
		if err != nil {
			return err
		}
		c.locker = svc
	default:
		return fmt.Errorf("unknown locker type")
	}
	return nil
}

func (c *Config) archiveService() error {
	switch c.ArchiveType {
	case "none":
		return nil
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc, err := s3archive.NewArchive(ctx, c.S3)
		if err != nil {
			return err
		}
		c.archive = svc
		return nil
	default:
		return fmt.Errorf("unknown archive type")
	}
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "queue":
		c.scheduler = queuescheduler.NewScheduler()
	case "gocron":
		c.scheduler = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) coordinatorService() {
	c.coordinator = application.NewSettlementCoordinator(
		c.ledger, c.oracle, c.locker, c.archive, c.scheduler,
		application.CoordinatorConfig{
			Resolver:           c.ResolverId,
			MaxRetries:         c.MaxRetries,
			RetryInterval:      c.RetryInterval,
			AbandonGracePeriod: c.AbandonGracePeriod,
		},
	)
	c.expiry = application.NewExpiryScheduler(
		c.ledger, c.scheduler, c.coordinator, c.ReconcileSchedule,
	)
}

func (c *Config) appService() error {
	if c.expiry == nil {
		return fmt.Errorf("services not initialized, call Validate first")
	}
	c.svc = application.NewService(c.ledger, c.creations, c.expiry)
	return nil
}

func (c *Config) adminService() error {
	if c.expiry == nil {
		return fmt.Errorf("services not initialized, call Validate first")
	}
	c.adminSvc = application.NewAdminService(c.ledger, c.expiry)
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
