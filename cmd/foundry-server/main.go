// Package main is the entry point for the Signal Foundry server.
// It only handles dependency injection and server initialization.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/engine"
	"github.com/HyprPixl/signalfoundry/internal/events"
	"github.com/HyprPixl/signalfoundry/internal/infra/storage"
	"github.com/HyprPixl/signalfoundry/internal/network"
	"github.com/HyprPixl/signalfoundry/internal/platform/config"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
	"github.com/HyprPixl/signalfoundry/internal/platform/metrics"
)

// SQLitePersisterAdapter translates engine events to storage events.
type SQLitePersisterAdapter struct {
	repo   *storage.SQLiteEventRepository
	slotID string
}

func (a *SQLitePersisterAdapter) Append(event events.GameEvent) error {
	var payload map[string]interface{}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.repo.Append(ctx, storage.GameEvent{
		ID:        event.ID,
		Seq:       event.Seq,
		SlotID:    a.slotID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Message:   event.Message,
		Payload:   payload,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger := logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	appLogger.Info("initializing signal foundry server", "store", cfg.Store, "listen", cfg.ListenAddr)

	catalog, err := cfg.LoadCatalog()
	if err != nil {
		appLogger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	var (
		store     storage.SnapshotStore
		eventRepo storage.EventRepository
		persister events.EventPersister
		db        *sql.DB
	)
	switch cfg.Store {
	case config.StoreSQLite:
		appLogger.Info("initializing sqlite database", "path", cfg.DBPath, "slot", cfg.Slot)
		db, err = storage.InitSQLite(cfg.DBPath)
		if err != nil {
			appLogger.Error("failed to initialize sqlite", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo := storage.NewSQLiteEventRepository(db)
		store = storage.NewSQLiteSnapshotStore(db, cfg.Slot)
		eventRepo = repo
		persister = &SQLitePersisterAdapter{repo: repo, slotID: cfg.Slot}
	default:
		store = storage.NewJSONFileStore(cfg.SavePath)
	}

	eventLog := events.NewEventLog(persister)
	eventLog.SetRetention(cfg.HistoryLimit)

	collector := metrics.Get()
	opts := []engine.Option{
		engine.WithStore(store),
		engine.WithEventLog(eventLog),
		engine.WithLogger(appLogger),
		engine.WithMetrics(collector),
	}
	if cfg.Seed != 0 {
		opts = append(opts, engine.WithSeed(cfg.Seed))
	}
	gameEngine := engine.NewEngine(catalog, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	autosave, saveOnExit := cfg.AutosaveInterval, true
	report, err := gameEngine.Load(ctx)
	if err != nil {
		appLogger.Error("failed to restore save, starting a fresh session", "error", err)
		moved, qerr := storage.SetAside(ctx, store)
		if qerr != nil {
			// Keep the bad snapshot in place; only an explicit save replaces it.
			appLogger.Warn("could not quarantine unloadable save, autosave disabled", "error", qerr)
			autosave, saveOnExit = 0, false
		} else {
			appLogger.Warn("unloadable save quarantined", "moved_to", moved)
		}
	} else {
		appLogger.Info(report.Message, "fresh", report.Fresh, "offline_seconds", report.OfflineSeconds)
	}

	ticker := engine.NewTicker(gameEngine, cfg.TickInterval, autosave)
	go ticker.Start(ctx)

	hub := network.NewHub(gameEngine, appLogger, network.HubOptions{
		SendBuffer:      cfg.ClientSendBuffer,
		BroadcastBuffer: cfg.BroadcastBuffer,
		Metrics:         collector,
	})
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	history := network.NewHistoryHandler(gameEngine, eventRepo, cfg.Slot, appLogger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           network.NewRouter(hub, history, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("http api and websocket server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	ticker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if saveOnExit {
		if _, err := gameEngine.Save(shutdownCtx); err != nil {
			appLogger.Error("final save failed", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown incomplete", "error", err)
	}
	cancel()
}
