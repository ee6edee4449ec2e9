package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Karlli16/OrderMatch/internal/api"
	app "github.com/Karlli16/OrderMatch/internal/app/engine"
	snapshotv1 "github.com/Karlli16/OrderMatch/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/Karlli16/OrderMatch/internal/domain/trade-publisher/v1"
	"github.com/Karlli16/OrderMatch/internal/usecase/ledger"
	"github.com/Karlli16/OrderMatch/internal/usecase/snapshot"
	tradepublisher "github.com/Karlli16/OrderMatch/internal/usecase/trade-publisher"
	"github.com/Karlli16/OrderMatch/pkg/config"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	"github.com/Karlli16/OrderMatch/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg = &config.Config{}
	err = config.Load(cfg)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	log = logger
}

// demoBalances seeds the ledger so orders can settle out of the box.
func demoBalances() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"alice": {"BTC": 10, "ETH": 100, "USD": 1_000_000},
		"bob":   {"BTC": 10, "ETH": 100, "USD": 1_000_000},
	}
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var rclient redis.Client
	var snapshotStore snapshotv1.Store
	if cfg.Redis.Enabled {
		redisConfig := redis.DefaultConfig()
		redisConfig.Addr = cfg.Redis.Addr
		redisConfig.Password = cfg.Redis.Password
		redisConfig.Username = cfg.Redis.Username
		redisConfig.DB = cfg.Redis.DB

		rclient = redis.NewClient(log, redisConfig)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "connect_redis",
			})
			return
		}

		snapshotStore = snapshot.NewStore(rclient, cfg.Snapshot.Key, log)
	}

	var publisher tradepublisherv1.TradePublisher
	if cfg.TradePublisher.Enabled {
		publisher = tradepublisher.NewPublisher(cfg.TradePublisher, log)
	}

	// Initialize components
	engine, err := app.NewEngineWithOptions(publisher, snapshotStore, log, &app.Options{
		SnapshotInterval: cfg.Snapshot.Interval,
	})
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "init_engine",
		})
		return
	}

	led := ledger.NewLedger(log, demoBalances())
	server := api.NewServer(engine, led, log)

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	go func() {
		if err := server.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "start_server",
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	log.Info("Matching engine started successfully", logger.Field{
		Key:   "addr",
		Value: cfg.ListenAddr,
	})

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	// Cancel the main context to signal shutdown
	cancel()

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_server",
		})
	}

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if rclient != nil {
		if err := rclient.Close(); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "close_redis_client",
			})
		}
	}

	log.Info("Matching engine shutdown complete")
}
