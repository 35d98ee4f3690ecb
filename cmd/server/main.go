package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/application/service"
	"github.com/fuelgambia/fuel-voucher/internal/config"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/backend"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/notify"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/payment"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/persistence/memory"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/persistence/repository"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/worker"
	httpserver "github.com/fuelgambia/fuel-voucher/internal/interfaces/http"
	"github.com/fuelgambia/fuel-voucher/internal/pricing"
	"github.com/fuelgambia/fuel-voucher/internal/report"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
	"github.com/fuelgambia/fuel-voucher/pkg/utils"
)

// stores groups the local persistence ports. They are backed by SQLite
// normally and fall back to in-memory stores when the database cannot
// be opened, so the station keeps dispensing fuel.
type stores struct {
	vouchers     port.VoucherRepository
	inventory    port.InventoryRepository
	transactions port.TransactionRepository
	balances     port.BalanceRepository
	queue        port.QueueRepository
	txManager    port.TransactionManager
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting fuel voucher station service",
		zap.String("station_id", cfg.Inventory.StationID),
		zap.Int("port", cfg.Server.Port))

	st, db := openStores(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	seedInventory(st.inventory, cfg, logger)

	prices, err := pricing.NewTable(
		decimal.NewFromFloat(cfg.Pricing.Petrol),
		decimal.NewFromFloat(cfg.Pricing.Diesel),
	)
	if err != nil {
		logger.Fatal("Invalid price table", zap.Error(err))
	}

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	payments := payment.NewSimulator(0.1, logger)
	notifier := notify.NewLogNotifier(logger)

	syncSvc := service.NewSyncService(
		st.queue, backendClient, backendClient, backendClient,
		st.inventory, st.vouchers,
		service.RetryPolicy{
			BackoffBase:   cfg.Queue.BackoffBase,
			BackoffMax:    cfg.Queue.BackoffMax,
			MaxRetries:    cfg.Queue.MaxRetries,
			RemoteTimeout: cfg.Backend.Timeout,
		},
		logger,
	)

	issuer := service.NewIssuerService(st.vouchers, service.IssuerConfig{
		SubsidyValidity: cfg.Voucher.SubsidyValidity,
		PaidValidity:    cfg.Voucher.PaidValidity,
	}, logger)

	redeemer := service.NewRedemptionService(
		st.vouchers, st.inventory, st.transactions, st.balances, st.txManager,
		syncSvc, notifier, prices,
		service.RedemptionConfig{
			StationID:         cfg.Inventory.StationID,
			LowStockThreshold: decimal.NewFromFloat(cfg.Inventory.LowStockThreshold),
		},
		logger,
	)

	purchases := service.NewPurchaseService(payments, issuer, logger)
	reporter := report.NewDailyReporter(st.transactions, st.inventory, cfg.Report.OutputDir, logger)

	handlers := httpserver.NewHandlers(
		issuer, redeemer, purchases, syncSvc,
		st.inventory, st.transactions, reporter,
		cfg.Inventory.StationID, logger,
	)
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	manager := worker.NewManager(logger)
	manager.Register(worker.NewDrainWorker(worker.DrainWorkerConfig{
		DrainInterval: cfg.Queue.DrainInterval,
		BatchSize:     cfg.Queue.BatchSize,
	}, syncSvc, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	if err := manager.StopAll(); err != nil {
		logger.Error("Worker shutdown incomplete", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown incomplete", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStores opens the SQLite-backed stores, degrading to in-memory
// stores when the database is unavailable. The returned *database.DB is
// nil in the degraded case.
func openStores(cfg *config.Config, logger *zap.Logger) (stores, *database.DB) {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err == nil {
		migrator := database.NewMigrator(db, logger)
		if merr := migrator.Run(context.Background(), cfg.Database.MigrationsDir); merr != nil {
			logger.Error("Migrations failed, falling back to in-memory stores", zap.Error(merr))
			db.Close()
			err = merr
		}
	}
	if err != nil {
		logger.Warn("Running with in-memory stores; local state will not survive restart",
			zap.Error(err))
		return stores{
			vouchers:     memory.NewVoucherStore(),
			inventory:    memory.NewInventoryStore(),
			transactions: memory.NewTransactionStore(),
			balances:     memory.NewBalanceStore(),
			queue:        memory.NewQueue(),
			txManager:    memory.NoopTxManager{},
		}, nil
	}

	return stores{
		vouchers:     repository.NewVoucherRepository(db.DB, logger),
		inventory:    repository.NewInventoryRepository(db.DB, logger),
		transactions: repository.NewTransactionRepository(db.DB, logger),
		balances:     repository.NewBalanceRepository(db.DB, logger),
		queue:        repository.NewQueueRepository(db.DB, logger),
		txManager:    db,
	}, db
}

// seedInventory writes the configured station snapshot when the local
// store has none yet. Stock starts at zero until the first backend
// refresh.
func seedInventory(inventory port.InventoryRepository, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	existing, err := inventory.Get(ctx, cfg.Inventory.StationID)
	if err != nil || existing != nil {
		return
	}

	inv := &entity.Inventory{
		StationID:   cfg.Inventory.StationID,
		StationName: cfg.Inventory.StationName,
		PetrolStock: decimal.Zero,
		DieselStock: decimal.Zero,
		LastUpdated: time.Now().UTC(),
	}
	if err := inventory.Put(ctx, inv); err != nil {
		logger.Warn("Failed to seed station inventory", zap.Error(err))
		return
	}
	logger.Info("Seeded station inventory",
		zap.String("station_id", cfg.Inventory.StationID),
		zap.String("station_name", cfg.Inventory.StationName))
}
