// Command lucidityd runs the Hollowmere lucidity subsystem: the passive
// flux scheduler, the adjustment control plane, and the notification
// stream.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/hollowmere/internal/api"
	"github.com/talgya/hollowmere/internal/config"
	"github.com/talgya/hollowmere/internal/entropy"
	"github.com/talgya/hollowmere/internal/flux"
	"github.com/talgya/hollowmere/internal/lucidity"
	"github.com/talgya/hollowmere/internal/notify"
	"github.com/talgya/hollowmere/internal/persistence"
	"github.com/talgya/hollowmere/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Hollowmere — lucidity subsystem")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Ledger store ──────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open ledger store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("ledger store opened", "path", cfg.DBPath)

	// ── World (always regenerated — deterministic from seed) ──────────
	genCfg := world.DefaultGenConfig()
	genCfg.Seed = cfg.WorldSeed
	atlas := world.Generate(genCfg)
	slog.Info("world generated", "rooms", atlas.RoomCount(), "seed", cfg.WorldSeed)

	overrides, err := flux.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		slog.Error("failed to load flux overrides", "error", err)
		os.Exit(1)
	}
	if overrides != nil {
		slog.Info("flux overrides loaded", "path", cfg.OverridesPath)
	}

	// ── Core wiring ───────────────────────────────────────────────────
	registry := lucidity.NewCatatoniaRegistry(func(actorID string, score int) error {
		// Emergency relocation hook. The real game moves the actor to a
		// sanctum; standalone we only record the event.
		slog.Warn("failover relocation requested", "actor", actorID, "score", score)
		return nil
	})

	broker := notify.NewBroker()
	engine := lucidity.NewEngine(db, registry, broker,
		lucidity.WithLossThreshold(cfg.LossThreshold),
		lucidity.WithEntropy(entropy.New()),
	)
	catalogs := lucidity.DefaultCatalogs()
	catalogs.AcclimationThreshold = cfg.AcclimationThreshold
	catalogs.LossThreshold = cfg.LossThreshold
	gateway := lucidity.NewGateway(db, engine, catalogs)

	schedCfg := flux.DefaultConfig()
	schedCfg.GlobalDefault = cfg.GlobalFlux
	schedCfg.ResistanceWindow = cfg.ResistanceWindow
	scheduler := flux.NewScheduler(db, engine, atlas, overrides, schedCfg,
		flux.WithPublisher(broker),
		flux.WithEntropy(entropy.New()),
	)

	loop := flux.NewLoop()
	loop.Interval = cfg.TickInterval
	loop.TicksPerCadence = cfg.TicksPerCadence
	loop.Speed = cfg.Speed
	loop.OnCadence = scheduler.RunCadence

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("LUCIDITYD_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Engine:   engine,
		Gateway:  gateway,
		Registry: registry,
		Ledger:   db,
		Loop:     loop,
		Broker:   broker,
		Atlas:    atlas,
		Addr:     cfg.APIAddr,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		loop.Stop()
	}()

	fmt.Printf("Hollowmere lucidity is running: %d rooms, cadence every %d ticks.\n",
		atlas.RoomCount(), cfg.TicksPerCadence)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.APIAddr)
	fmt.Println("Ctrl+C to stop.")

	loop.Run()

	// Drain in-flight failovers and close the API before exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	registry.Wait()

	fmt.Println("Lucidity subsystem stopped.")
}
