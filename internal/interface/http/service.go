package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ark-network/wager/internal/config"
	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/ports"
	interfaces "github.com/ark-network/wager/internal/interface"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Config struct {
	Port uint32
	// AdminUser and AdminPass enable basic auth on admin routes when set.
	AdminUser string
	AdminPass string
}

func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	if (c.AdminUser == "") != (c.AdminPass == "") {
		return fmt.Errorf("admin user and password must be set together")
	}
	return nil
}

type service struct {
	config    Config
	appConfig *config.Config
	server    *http.Server
}

func NewService(svcConfig Config, appConfig *config.Config) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}
	return &service{config: svcConfig, appConfig: appConfig}, nil
}

func (s *service) Start() error {
	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}
	adminSvc, err := s.appConfig.AdminService()
	if err != nil {
		return err
	}
	ledgerHandler, err := s.appConfig.LedgerHandler()
	if err != nil {
		return err
	}

	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	router := newRouter(routerConfig{
		appSvc:        appSvc,
		adminSvc:      adminSvc,
		ledgerHandler: ledgerHandler,
		feed:          s.appConfig.PublicFeed(),
		adminUser:     s.config.AdminUser,
		adminPass:     s.config.AdminPass,
	})
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.Infof("http server listening on port %d", s.config.Port)
	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to shutdown http server")
		}
		log.Info("stopped http server")
	}

	appSvc, _ := s.appConfig.AppService()
	if appSvc != nil {
		appSvc.Stop()
		log.Info("stopped app service")
	}
	s.appConfig.Close()
}

type routerConfig struct {
	appSvc        application.Service
	adminSvc      application.AdminService
	ledgerHandler http.Handler
	feed          ports.CreationFeed
	adminUser     string
	adminPass     string
}

func newRouter(cfg routerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := newHandler(cfg.appSvc)
	admin := &adminHandler{cfg.adminSvc, h.now}

	v1 := router.Group("/v1")
	v1.GET("/info", h.getInfo)
	v1.POST("/pools", h.createPool)
	v1.GET("/pools", h.listPools)
	v1.GET("/pools/:id", h.getPool)
	v1.GET("/pools/:id/report", h.getReport)
	v1.POST("/pools/:id/bets", h.placeBet)
	v1.POST("/pools/:id/propose", h.proposeOutcome)
	v1.POST("/pools/:id/challenge", h.challenge)
	v1.POST("/pools/:id/finalize", h.finalize)
	v1.POST("/pools/:id/claim", h.claim)
	v1.POST("/pools/:id/refund", h.refund)
	if cfg.feed != nil {
		v1.GET("/feed", newFeedHandler(cfg.feed).streamCreations)
	}

	adminGroup := v1.Group("/admin")
	if cfg.adminUser != "" {
		adminGroup.Use(gin.BasicAuth(gin.Accounts{cfg.adminUser: cfg.adminPass}))
	}
	adminGroup.POST("/pools/:id/resolve", admin.resolveDispute)
	adminGroup.POST("/pools/:id/cancel", admin.cancelPool)
	adminGroup.POST("/pools/:id/settle", admin.triggerSettlement)
	adminGroup.GET("/scheduled", admin.getScheduledPools)
	adminGroup.GET("/config", admin.getFeeConfig)
	adminGroup.PUT("/config", admin.updateFeeConfig)
	adminGroup.PUT("/config/admin", admin.setAdmin)

	if cfg.ledgerHandler != nil {
		router.POST("/ledger", gin.WrapH(cfg.ledgerHandler))
	}
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	}
}
