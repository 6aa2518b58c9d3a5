package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/GoPolymarket/range-market/internal/api"
	"github.com/GoPolymarket/range-market/internal/chain"
	"github.com/GoPolymarket/range-market/internal/config"
	"github.com/GoPolymarket/range-market/internal/logging"
	"github.com/GoPolymarket/range-market/internal/market"
	"github.com/GoPolymarket/range-market/internal/notify"
	"github.com/GoPolymarket/range-market/internal/paper"
	"github.com/GoPolymarket/range-market/internal/store"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	phase := flag.String("phase", "", "rollout phase preset: paper|shadow|live-small|live")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env: %v", err)
	}

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := config.ApplyRolloutPhase(&cfg, *phase); err != nil {
		log.Fatalf("invalid -phase: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	params := cfg.Pricing.Params()
	logger.Info("range-market starting",
		zap.String("mode", cfg.Mode),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("phase", strings.TrimSpace(*phase)),
		zap.String("gateway", cfg.Gateway()),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("resolution", params.Resolution),
		zap.Float64("mass_scale_usd", params.MassScaleUSD),
		zap.Float64("fee_rate", params.FeeRate),
	)

	db, err := store.Open(store.Options{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = store.Close(db) }()

	gateway, ledger, err := buildGateway(cfg, logger)
	if err != nil {
		logger.Fatal("gateway", zap.Error(err))
	}

	opts := []market.Option{
		market.WithLogger(logger.Named("market")),
		market.WithListLimit(cfg.Market.ListLimit),
	}
	notifier := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Gateway())
	if cfg.Telegram.Enabled && notifier.Enabled() {
		opts = append(opts, market.WithNotifier(notifier))
		logger.Info("telegram notifications enabled")
	}
	svc := market.NewService(store.NewRepository(db), gateway, params, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var paperProvider api.PaperProvider
	if ledger != nil {
		paperProvider = ledger
	}
	apiServer := api.NewServer(api.Options{
		Addr:           cfg.API.Addr,
		Mode:           cfg.Gateway(),
		RateLimit:      cfg.API.RateLimit,
		Burst:          cfg.API.Burst,
		AllowedOrigins: cfg.API.AllowedOrigins,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
	}, svc, paperProvider, logger.Named("api"))
	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("api server failed to start", zap.Error(err))
	}

	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
}

// buildGateway wires the registration gateway for the configured mode. The
// paper ledger is returned for paper and shadow runs so the API can expose it.
func buildGateway(cfg config.Config, logger *zap.Logger) (market.Gateway, *paper.Gateway, error) {
	switch cfg.Gateway() {
	case "live":
		creator, err := chain.CreatorAddress(cfg.Registration.PrivateKey)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("live registration enabled",
			zap.String("endpoint", cfg.Registration.Endpoint),
			zap.String("creator", creator),
		)
		return chain.NewHTTPGateway(cfg.Registration.Endpoint, creator, cfg.Registration.Timeout), nil, nil
	case "shadow":
		ledger := paper.NewGateway(paper.Config{TxPrefix: "shadow-tx", RejectCategories: cfg.Paper.RejectCategories})
		return paper.NewShadowGateway(ledger, cfg.Registration.Endpoint, logger.Named("shadow")), ledger, nil
	default:
		ledger := paper.NewGateway(paper.Config{TxPrefix: cfg.Paper.TxPrefix, RejectCategories: cfg.Paper.RejectCategories})
		return ledger, ledger, nil
	}
}
