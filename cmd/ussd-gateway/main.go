package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isharaux/ussd-gateway/internal/common/config"
	"github.com/isharaux/ussd-gateway/internal/events"
	"github.com/isharaux/ussd-gateway/internal/gateway"
	"github.com/isharaux/ussd-gateway/internal/history"
	"github.com/isharaux/ussd-gateway/internal/lifecycle"
	"github.com/isharaux/ussd-gateway/internal/metrics"
	"github.com/isharaux/ussd-gateway/internal/platform"
	"github.com/isharaux/ussd-gateway/internal/sim"
	"github.com/isharaux/ussd-gateway/pkg/codes"
	"github.com/isharaux/ussd-gateway/pkg/logger"
	"github.com/isharaux/ussd-gateway/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ussd-gateway",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ussd-gateway version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "ussd-gateway",
		Short: "USSD session gateway",
		Long:  `ussd-gateway exposes USSD dialing, session management and carrier code lookups over HTTP`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/ussd-gateway.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func getConfigPath() string {
	if envPath := os.Getenv("USSD_GATEWAY_CONF"); envPath != "" {
		return envPath
	}
	return configPath
}

func run() {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting ussd-gateway",
		zap.String("version", version.Get()),
		zap.String("platform", cfg.Platform.Type))

	bus := events.NewBus(zapLogger)
	collector := metrics.NewCollector("ussd")

	histStore, err := newHistoryStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize history store", zap.Error(err))
	}

	adapter, err := newAdapter(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize platform adapter", zap.Error(err))
	}

	sims := sim.NewStaticProvider()
	svc := lifecycle.New(zapLogger, lifecycle.Config{
		DefaultTimeout: cfg.Ussd.DefaultTimeout,
		SecureMode:     cfg.Ussd.SecureMode,
	}, adapter, sims, bus, collector, histStore)

	watcher := sim.NewWatcher(zapLogger, sims, bus, 5*time.Second)
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	go watcher.Run(watcherCtx)

	srv := gateway.NewServer(zapLogger.Named("gateway"), cfg.Gateway.Host, cfg.Gateway.Port, svc, bus, collector, codes.NewLibrary())
	srv.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down ussd-gateway")
	stopWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("failed to shut down server", zap.Error(err))
	}
}

func newHistoryStore(cfg *config.Config, zapLogger *zap.Logger) (history.Store, error) {
	switch cfg.History.Type {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return history.NewRedisStore(ctx, history.RedisOptions{
			Addr:       cfg.History.Redis.Addr,
			Username:   cfg.History.Redis.Username,
			Password:   cfg.History.Redis.Password,
			DB:         cfg.History.Redis.DB,
			Prefix:     cfg.History.Redis.Prefix,
			MaxEntries: cfg.History.MaxEntries,
		})
	case "memory", "":
		return history.NewMemoryStore(cfg.History.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", cfg.History.Type)
	}
}

func newAdapter(cfg *config.Config, zapLogger *zap.Logger) (platform.Adapter, error) {
	switch cfg.Platform.Type {
	case "dialer":
		// No telephony stack on a plain host; the opener only records the
		// launch so integrations can be verified end to end.
		open := func(_ context.Context, telURL string) error {
			zapLogger.Info("dialer launch requested", zap.String("url", telURL))
			return nil
		}
		return platform.NewDialerAdapter(zapLogger, open), nil
	case "simulated", "":
		return platform.NewSimulatedAdapter(zapLogger), nil
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", cfg.Platform.Type)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
