package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/wager/internal/config"
	httpservice "github.com/ark-network/wager/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "the url where to reach the wager daemon",
		Value: fmt.Sprintf("http://localhost:%d", config.DefaultPort),
	}
	userFlag = &cli.StringFlag{
		Name:    "user",
		Usage:   "admin api username",
		EnvVars: []string{"WAGER_ADMIN_USER"},
	}
	passFlag = &cli.StringFlag{
		Name:    "pass",
		Usage:   "admin api password",
		EnvVars: []string{"WAGER_ADMIN_PASS"},
	}
)

func mainAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := httpservice.Config{
		Port:      cfg.Port,
		AdminUser: cfg.AdminUser,
		AdminPass: cfg.AdminPass,
	}

	svc, err := httpservice.NewService(svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("wagerd config:\n%s", cfg)

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "wagerd"
	app.Usage = "run or manage the wager pool settlement daemon"
	app.UsageText = "Run the daemon with no command, or use a command to reach a running instance"
	app.Commands = append(app.Commands, poolsCmd, configCmd)
	app.Action = mainAction
	app.Flags = append(app.Flags, urlFlag, userFlag, passFlag)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
