package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"spot-trading-engine/internal/binance"
	"spot-trading-engine/internal/config"
	"spot-trading-engine/internal/engine"
	"spot-trading-engine/internal/httpapi"
	"spot-trading-engine/internal/logger"
	"spot-trading-engine/internal/metrics"
	"spot-trading-engine/internal/telegram"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	// Flags win over the file and the environment.
	if cmd.IsSet("dry-run") {
		_ = os.Setenv("DRY_RUN", strconv.FormatBool(cmd.Bool("dry-run")))
	}
	if cmd.IsSet("log-level") {
		_ = os.Setenv("LOG_LEVEL", cmd.String("log-level"))
	}

	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return err
	}

	lg, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	var gateway engine.Gateway
	client := binance.NewClient(cfg.Exchange, lg.Component("binance"))
	if cfg.Exchange.DryRun {
		gateway = binance.NewPaper(client, cfg.Exchange.QuoteAsset, cfg.Exchange.PaperBalance, cfg.Exit.FeePct, lg.Component("paper"))
	} else {
		gateway = client
	}
	defer func() { _ = gateway.Close() }()

	notifier := telegram.NewNotifier(cfg.Telegram, lg.Component("telegram"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	eng, err := engine.New(cfg, gateway, notifier, lg.Component("engine"), engine.WithMetrics(m))
	if err != nil {
		return err
	}

	server := httpapi.NewServer(cfg.Metrics.Addr, eng.Status, registry, lg.Component("http"))
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("⚙️ Configuration loaded",
		zap.Strings("symbols", cfg.Engine.Symbols),
		zap.Int("max_positions", cfg.Engine.MaxPositions),
		zap.Bool("dry_run", cfg.Exchange.DryRun),
		zap.Bool("testnet", cfg.Exchange.Testnet),
		zap.Bool("telegram", notifier.Enabled()),
	)
	return eng.Run(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Adaptive multi-asset spot trading engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config/config.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with secrets",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Simulate fills on a paper account instead of trading",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
