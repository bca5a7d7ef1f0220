package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/infra/storage"
	"github.com/MRamiBalles/ByteLife/internal/network"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/spf13/cobra"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the settlement loop and the WebSocket/HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCommand)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger := newLogger(cfg)
	m := metrics.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("opening storage", "driver", cfg.DBDriver)
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	var persister events.EventPersister
	var recap network.RecapSource
	if be.events != nil {
		persister = storage.NewEventPersister(be.events, m)
		recap = storage.NewRecap(be.events)
	}
	eventLog := events.NewEventLog(persister,
		events.WithCapacity(cfg.EventLogCapacity),
		events.WithPersistErrorHandler(func(e events.GameEvent, err error) {
			appLogger.Error("failed to persist event", "event", e.ID, "type", string(e.Type), "error", err)
		}),
	)

	eng := engine.NewEngine(eventLog, appLogger, engine.Options{
		Workers:     cfg.SettlementWorkers,
		MaxSessions: cfg.MaxSessions,
		Metrics:     m,
	})
	if be.store != nil {
		n, err := eng.LoadAll(ctx, be.store)
		if err != nil {
			return err
		}
		appLogger.Info("restored sessions", "count", n, "tick", eng.TickNumber())
	}

	eng.Start(ctx, cfg.TickInterval(), cfg.DownloadStep())
	if be.store != nil && cfg.SnapshotInterval() > 0 {
		go snapshotLoop(ctx, eng, be.store, cfg.SnapshotInterval(), appLogger)
	}

	hubOpts := network.HubOptions{
		ClientSendBuffer:     cfg.ClientSendBuffer,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		MaxClients:           cfg.MaxClients,
	}
	history := network.NewHistoryHandler(eng, recap, appLogger)
	if be.store != nil {
		hubOpts.Loader = be.store
		history.WithLoader(be.store)
	}
	hub := network.NewHub(eng, appLogger, m, hubOpts)
	detach := hub.Attach(eventLog)
	defer detach()
	go hub.Run(ctx)

	mux := network.NewMux(network.Routes{
		Hub:     hub,
		Shop:    network.NewShopBridge(eng, appLogger),
		History: history,
		Metrics: m,
	})
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown", "error", err)
	}
	if be.store != nil {
		if err := eng.SaveAll(shutdownCtx, be.store); err != nil {
			appLogger.Error("final snapshot failed", "error", err)
			return err
		}
	}
	return nil
}

// snapshotLoop saves every session on a fixed period until ctx is done.
func snapshotLoop(ctx context.Context, eng *engine.Engine, store engine.SessionStore, every time.Duration, log *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := eng.SaveAll(ctx, store); err != nil {
				log.Error("snapshot failed", "error", err)
			}
		}
	}
}
