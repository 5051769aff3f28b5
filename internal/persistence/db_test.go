package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/hollowmere/internal/lucidity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetOrCreateFreshActor(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec, err := db.GetOrCreate(ctx, "newcomer")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if rec.Score != lucidity.ScoreMax || rec.Tier != lucidity.TierStable {
		t.Fatalf("fresh record = %d/%s", rec.Score, rec.Tier)
	}
	if len(rec.Liabilities) != 0 || rec.CatatoniaEnteredAt != nil {
		t.Fatalf("fresh record carries state: %+v", rec)
	}

	// A second call must not reset an existing row.
	rec.Score = 40
	rec.Tier = lucidity.ResolveTier(40)
	if err := db.SaveAdjustment(ctx, rec, lucidity.LogEntry{
		ID: "e1", ActorID: "newcomer", Delta: -60, Reason: "test", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := db.GetOrCreate(ctx, "newcomer")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Score != 40 || again.Tier != lucidity.TierUneasy {
		t.Fatalf("reloaded record = %d/%s, want 40/uneasy", again.Score, again.Tier)
	}
}

func TestSaveAdjustmentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetOrCreate(ctx, "haunted"); err != nil {
		t.Fatal(err)
	}

	enteredAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := lucidity.Record{
		ActorID: "haunted",
		Score:   -20,
		Tier:    lucidity.TierTerminal,
		Liabilities: []lucidity.Liability{
			{Code: "paranoia", Stacks: 2},
			{Code: "tremors", Stacks: 1},
		},
		CatatoniaEnteredAt: &enteredAt,
	}
	entry := lucidity.LogEntry{
		ID:      "entry-1",
		ActorID: "haunted",
		Delta:   -30,
		Reason:  "encounter_eldritch",
		Metadata: map[string]string{
			"archetype": "deep/choir",
		},
		LocationID: "abyss:region-0-0:room-1",
		CreatedAt:  enteredAt,
	}
	if err := db.SaveAdjustment(ctx, rec, entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetOrCreate(ctx, "haunted")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Score != -20 || got.Tier != lucidity.TierTerminal {
		t.Fatalf("record = %d/%s", got.Score, got.Tier)
	}
	if got.CatatoniaEnteredAt == nil || !got.CatatoniaEnteredAt.Equal(enteredAt) {
		t.Fatalf("catatonia stamp = %v, want %v", got.CatatoniaEnteredAt, enteredAt)
	}
	if len(got.Liabilities) != 2 || got.Liabilities[0].Code != "paranoia" || got.Liabilities[1].Code != "tremors" {
		t.Fatalf("liabilities = %+v", got.Liabilities)
	}
	if got.Liabilities[0].Stacks != 2 {
		t.Fatalf("paranoia stacks = %d", got.Liabilities[0].Stacks)
	}

	// Clearing the stamp must round-trip back to NULL.
	rec.CatatoniaEnteredAt = nil
	rec.Score = 5
	rec.Tier = lucidity.TierDeranged
	if err := db.SaveAdjustment(ctx, rec, lucidity.LogEntry{
		ID: "entry-2", ActorID: "haunted", Delta: 25, Reason: "recovery_commune", CreatedAt: enteredAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("save clear: %v", err)
	}
	got, err = db.GetOrCreate(ctx, "haunted")
	if err != nil {
		t.Fatal(err)
	}
	if got.CatatoniaEnteredAt != nil {
		t.Fatalf("stamp not cleared: %v", got.CatatoniaEnteredAt)
	}

	log, err := db.RecentLog(ctx, "haunted", 10)
	if err != nil {
		t.Fatalf("recent log: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("log entries = %d, want 2", len(log))
	}
	if log[0].ID != "entry-2" || log[1].ID != "entry-1" {
		t.Fatalf("log order = %s, %s", log[0].ID, log[1].ID)
	}
	if log[1].Metadata["archetype"] != "deep/choir" {
		t.Fatalf("metadata = %v", log[1].Metadata)
	}
	if log[1].LocationID != "abyss:region-0-0:room-1" {
		t.Fatalf("location = %q", log[1].LocationID)
	}
	if log[0].Metadata != nil {
		t.Fatalf("empty metadata decoded as %v", log[0].Metadata)
	}
}

func TestIncrementExposure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	exp, err := db.Exposure(ctx, "scout", "ash/watcher")
	if err != nil {
		t.Fatal(err)
	}
	if exp.EncounterCount != 0 {
		t.Fatalf("unseen pair count = %d", exp.EncounterCount)
	}

	for i := 1; i <= 3; i++ {
		count, err := db.IncrementExposure(ctx, "scout", "ash/watcher", at.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("count after %d increments = %d", i, count)
		}
	}

	// A different archetype tracks independently.
	count, err := db.IncrementExposure(ctx, "scout", "deep/choir", at)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("second archetype count = %d", count)
	}

	exp, err = db.Exposure(ctx, "scout", "ash/watcher")
	if err != nil {
		t.Fatal(err)
	}
	if exp.EncounterCount != 3 || !exp.LastEncounterAt.Equal(at.Add(3*time.Minute)) {
		t.Fatalf("exposure = %+v", exp)
	}
}

func TestCooldownLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	expiry, err := db.Cooldown(ctx, "monk", "meditate")
	if err != nil {
		t.Fatal(err)
	}
	if !expiry.IsZero() {
		t.Fatalf("unset cooldown = %v", expiry)
	}

	want := time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC)
	if err := db.SetCooldown(ctx, "monk", "meditate", want); err != nil {
		t.Fatal(err)
	}
	expiry, err = db.Cooldown(ctx, "monk", "meditate")
	if err != nil {
		t.Fatal(err)
	}
	if !expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", expiry, want)
	}

	// Re-arming overwrites in place.
	later := want.Add(time.Hour)
	if err := db.SetCooldown(ctx, "monk", "meditate", later); err != nil {
		t.Fatal(err)
	}
	expiry, _ = db.Cooldown(ctx, "monk", "meditate")
	if !expiry.Equal(later) {
		t.Fatalf("expiry after re-arm = %v, want %v", expiry, later)
	}
}

func TestListActiveActors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		id         string
		lastActive time.Time
		createdAt  time.Time
	}{
		{"fresh-and-active", now, now.Add(-2 * time.Hour)},
		{"idle-but-new", now.Add(-time.Hour), now.Add(-10 * time.Minute)},
		{"idle-and-old", now.Add(-time.Hour), now.Add(-48 * time.Hour)},
	}
	for _, s := range seed {
		err := db.UpsertPresence(ctx, lucidity.ActorInfo{
			ActorID:      s.id,
			RoomID:       "mortal:region-0-0:room-0",
			LastActiveAt: s.lastActive,
			CreatedAt:    s.createdAt,
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", s.id, err)
		}
	}

	// Give one actor a non-stable ledger row; the others should join as
	// stable by default.
	rec, err := db.GetOrCreate(ctx, "fresh-and-active")
	if err != nil {
		t.Fatal(err)
	}
	rec.Score = 10
	rec.Tier = lucidity.ResolveTier(10)
	if err := db.SaveAdjustment(ctx, rec, lucidity.LogEntry{
		ID: "e1", ActorID: rec.ActorID, Delta: -90, Reason: "test", CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	actors, err := db.ListActiveActors(ctx, now.Add(-5*time.Minute), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actors) != 2 {
		t.Fatalf("eligible actors = %d, want 2", len(actors))
	}
	byID := make(map[string]lucidity.ActorInfo)
	for _, a := range actors {
		byID[a.ActorID] = a
	}
	if _, ok := byID["idle-and-old"]; ok {
		t.Fatal("stale actor listed")
	}
	if got := byID["fresh-and-active"].Tier; got != lucidity.TierDeranged {
		t.Fatalf("joined tier = %s, want deranged", got)
	}
	if got := byID["idle-but-new"].Tier; got != lucidity.TierStable {
		t.Fatalf("ledgerless tier = %s, want stable", got)
	}

	// Presence refresh moves the room without touching created_at.
	if err := db.UpsertPresence(ctx, lucidity.ActorInfo{
		ActorID:      "idle-and-old",
		RoomID:       "veil:region-1-1:room-2",
		LastActiveAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	actors, err = db.ListActiveActors(ctx, now.Add(-5*time.Minute), now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(actors) != 3 {
		t.Fatalf("after refresh eligible = %d, want 3", len(actors))
	}
	for _, a := range actors {
		if a.ActorID == "idle-and-old" && a.RoomID != "veil:region-1-1:room-2" {
			t.Fatalf("room not refreshed: %s", a.RoomID)
		}
	}
}
