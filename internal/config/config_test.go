package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "data/lucidity.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.APIAddr != ":8080" {
		t.Errorf("api addr = %q", cfg.APIAddr)
	}
	if cfg.TickInterval != time.Second || cfg.TicksPerCadence != 60 || cfg.Speed != 1.0 {
		t.Errorf("tick config = %v/%d/%f", cfg.TickInterval, cfg.TicksPerCadence, cfg.Speed)
	}
	if cfg.GlobalFlux != -0.1 || cfg.ResistanceWindow != 30 || cfg.LossThreshold != 15 {
		t.Errorf("flux config = %f/%d/%d", cfg.GlobalFlux, cfg.ResistanceWindow, cfg.LossThreshold)
	}
	if cfg.AcclimationThreshold != 6 {
		t.Errorf("acclimation threshold = %d", cfg.AcclimationThreshold)
	}
	if cfg.WorldSeed != 42 {
		t.Errorf("seed = %d", cfg.WorldSeed)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LUCIDITYD_DB_PATH", "/tmp/other.db")
	t.Setenv("LUCIDITYD_ADMIN_KEY", "hunter2")
	t.Setenv("LUCIDITYD_TICK_INTERVAL", "250ms")
	t.Setenv("LUCIDITYD_GLOBAL_FLUX", "-0.5")
	t.Setenv("LUCIDITYD_LOSS_THRESHOLD", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" || cfg.AdminKey != "hunter2" {
		t.Errorf("got %q / %q", cfg.DBPath, cfg.AdminKey)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.TickInterval)
	}
	if cfg.GlobalFlux != -0.5 || cfg.LossThreshold != 20 {
		t.Errorf("flux = %f, threshold = %d", cfg.GlobalFlux, cfg.LossThreshold)
	}
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("LUCIDITYD_TICK_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
