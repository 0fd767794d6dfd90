package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"remindd/pkg/config"
	"remindd/pkg/journal"
	"remindd/pkg/notify"
	"remindd/pkg/reminders"
)

const shutdownTimeout = 5 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "remindd"
	app.Usage = "in-memory reminder dispatcher"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML config file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override the configured log level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Println("remindd:", err.Error())
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return err
	}
	if lvl := cliCtx.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()

	// Dispatch journal (optional)
	var (
		store    *journal.Store
		recorder reminders.Recorder
	)
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	// Create the engine
	engine := reminders.New(reminders.Options{
		Notifier: newNotifier(cfg, logger),
		Clock:    clock.New(),
		Recorder: recorder,
		Logger:   logger.With().Str("component", "engine").Logger(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run the scheduler loop in the background
	go func() {
		_ = engine.Run(ctx)
	}()

	// Start the server to get user input
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: newRouter(engine, store, logger.With().Str("component", "server").Logger()),
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info().Msg("shutting down")

	return nil
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) reminders.Notifier {
	if cfg.Notifier.Kind == config.NotifierSMTP {
		return &notify.SMTP{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:     cfg.Notifier.SMTP.From,
		}
	}

	return &notify.Log{Logger: logger.With().Str("component", "notifier").Logger()}
}
