// Package main provides the inventory server binary: it loads the item
// catalog, restores the last snapshot, serves the inventory gRPC service and
// snapshots state periodically and on shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/stash/internal/config"
	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/game/item"
	"github.com/cory-johannsen/stash/internal/gameserver"
	"github.com/cory-johannsen/stash/internal/observability"
	"github.com/cory-johannsen/stash/internal/server"
	"github.com/cory-johannsen/stash/internal/storage"
	"github.com/cory-johannsen/stash/internal/storage/file"
	"github.com/cory-johannsen/stash/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "stashd")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting inventory server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	catalogStart := time.Now()
	catalog, err := item.LoadCatalog(cfg.Engine.CatalogDir)
	if err != nil {
		logger.Fatal("loading item catalog", zap.Error(err))
	}
	logger.Info("item catalog loaded",
		zap.Int("items", catalog.Len()),
		zap.Duration("duration", time.Since(catalogStart)),
	)

	mgr := inventory.NewManager(item.NewModifiedRegistry(catalog), logger)

	// Snapshot stores
	var (
		stores []storage.SnapshotStore
		pool   *postgres.Pool
	)
	if cfg.Storage.UsesFile() {
		fs, err := file.NewSnapshotStore(cfg.Storage.Dir, logger)
		if err != nil {
			logger.Fatal("opening snapshot directory", zap.Error(err))
		}
		stores = append(stores, fs)
	}
	if cfg.Storage.UsesPostgres() {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("connected to database", zap.Duration("duration", time.Since(dbStart)))
		stores = append(stores, pool.Snapshots())
	}
	if len(stores) == 0 {
		stores = append(stores, storage.NewMemoryStore())
	}
	snapshots := storage.NewSnapshotter(
		storage.NewFanout(logger, stores...),
		cfg.Storage.SnapshotName, mgr, logger,
	)

	restored, err := snapshots.Restore(ctx)
	if err != nil {
		logger.Fatal("restoring snapshot", zap.Error(err))
	}
	if restored {
		logger.Info("snapshot restored",
			zap.String("snapshot", cfg.Storage.SnapshotName),
			zap.Int("inventories", mgr.Len()),
			zap.Int("modified_items", mgr.Items().Len()),
		)
	}

	// Create gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(gameserver.LoggingInterceptor(logger)))
	gameserver.NewInventoryService(mgr, gameserver.Options{
		DefaultSlots: cfg.Engine.DefaultSlots,
		MaxSlots:     cfg.Engine.MaxSlots,
	}, logger).Register(grpcServer)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(cfg.GameServer.ShutdownTimeout):
				logger.Warn("graceful stop timed out; closing connections")
				grpcServer.Stop()
			}
		},
	})

	lifecycle.Add("autosave", server.NewTickerService("autosave", cfg.Storage.AutosaveInterval, snapshots.Tick, logger))

	if pool != nil {
		lifecycle.Add("postgres", server.NewTickerService("postgres-health", 30*time.Second, func(ctx context.Context) error {
			if err := pool.Health(ctx, 5*time.Second); err != nil {
				return fmt.Errorf("database health check failed: %w", err)
			}
			return nil
		}, logger))
	}

	logger.Info("inventory server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	runErr := lifecycle.Run(ctx)

	saveCtx, cancel := context.WithTimeout(context.Background(), cfg.GameServer.ShutdownTimeout)
	if _, err := snapshots.Save(saveCtx); err != nil {
		logger.Error("final snapshot failed", zap.Error(err))
	} else {
		logger.Info("final snapshot saved", zap.String("snapshot", cfg.Storage.SnapshotName))
	}
	cancel()
	if pool != nil {
		pool.Close()
	}

	if runErr != nil {
		logger.Fatal("server error", zap.Error(runErr))
	}
}
