// Package persistence provides the SQLite-backed lucidity ledger store.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hollowmere/internal/lucidity"
)

// DB wraps a SQLite connection implementing lucidity.Ledger. SQLite's
// single-writer transactions are what serializes concurrent adjustments
// for the same actor.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lucidity_records (
		actor_id TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		tier INTEGER NOT NULL,
		catatonia_entered_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS liabilities (
		actor_id TEXT NOT NULL,
		code TEXT NOT NULL,
		stacks INTEGER NOT NULL,
		PRIMARY KEY (actor_id, code)
	);

	CREATE TABLE IF NOT EXISTS adjustment_log (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		metadata_json TEXT,
		location_id TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exposures (
		actor_id TEXT NOT NULL,
		archetype TEXT NOT NULL,
		encounter_count INTEGER NOT NULL,
		last_encounter_at INTEGER NOT NULL,
		PRIMARY KEY (actor_id, archetype)
	);

	CREATE TABLE IF NOT EXISTS cooldowns (
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (actor_id, action)
	);

	CREATE TABLE IF NOT EXISTS actors (
		actor_id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		last_active_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_log_actor ON adjustment_log(actor_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_actors_active ON actors(last_active_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// GetOrCreate loads an actor's ledger row, creating the fresh-actor row
// (score ceiling, stable tier) on first sight.
func (db *DB) GetOrCreate(ctx context.Context, actorID string) (lucidity.Record, error) {
	fresh := lucidity.NewRecord(actorID)
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO lucidity_records (actor_id, score, tier, catatonia_entered_at)
		 VALUES (?, ?, ?, NULL)`,
		actorID, fresh.Score, int(fresh.Tier),
	)
	if err != nil {
		return lucidity.Record{}, fmt.Errorf("create record: %w", err)
	}
	return db.loadRecord(ctx, actorID)
}

func (db *DB) loadRecord(ctx context.Context, actorID string) (lucidity.Record, error) {
	var row struct {
		ActorID            string        `db:"actor_id"`
		Score              int           `db:"score"`
		Tier               int           `db:"tier"`
		CatatoniaEnteredAt sql.NullInt64 `db:"catatonia_entered_at"`
	}
	err := db.conn.GetContext(ctx, &row,
		`SELECT actor_id, score, tier, catatonia_entered_at FROM lucidity_records WHERE actor_id = ?`,
		actorID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lucidity.Record{}, lucidity.ErrActorNotFound
		}
		return lucidity.Record{}, fmt.Errorf("load record: %w", err)
	}

	rec := lucidity.Record{
		ActorID: row.ActorID,
		Score:   row.Score,
		Tier:    lucidity.Tier(row.Tier),
	}
	if row.CatatoniaEnteredAt.Valid {
		at := fromMillis(row.CatatoniaEnteredAt.Int64)
		rec.CatatoniaEnteredAt = &at
	}

	// rowid order preserves insertion order of the liability list.
	err = db.conn.SelectContext(ctx, &rec.Liabilities,
		`SELECT code, stacks FROM liabilities WHERE actor_id = ? ORDER BY rowid`,
		actorID,
	)
	if err != nil {
		return lucidity.Record{}, fmt.Errorf("load liabilities: %w", err)
	}
	return rec, nil
}

// SaveAdjustment persists the record, its liability list, and the log
// entry in one transaction. Either all of it lands or none of it does.
func (db *DB) SaveAdjustment(ctx context.Context, rec lucidity.Record, entry lucidity.LogEntry) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var enteredAt any
	if rec.CatatoniaEnteredAt != nil {
		enteredAt = toMillis(*rec.CatatoniaEnteredAt)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO lucidity_records (actor_id, score, tier, catatonia_entered_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(actor_id) DO UPDATE SET
		   score = excluded.score,
		   tier = excluded.tier,
		   catatonia_entered_at = excluded.catatonia_entered_at`,
		rec.ActorID, rec.Score, int(rec.Tier), enteredAt,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM liabilities WHERE actor_id = ?`, rec.ActorID); err != nil {
		return fmt.Errorf("clear liabilities: %w", err)
	}
	for _, l := range rec.Liabilities {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO liabilities (actor_id, code, stacks) VALUES (?, ?, ?)`,
			rec.ActorID, l.Code, l.Stacks,
		)
		if err != nil {
			return fmt.Errorf("save liability %s: %w", l.Code, err)
		}
	}

	var metadataJSON any
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = string(data)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO adjustment_log (id, actor_id, delta, reason, metadata_json, location_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, entry.Delta, entry.Reason, metadataJSON, entry.LocationID, toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}

	return tx.Commit()
}

// Exposure returns the encounter counter for an actor/archetype pair. A
// pair never seen before reports zero.
func (db *DB) Exposure(ctx context.Context, actorID, archetype string) (lucidity.Exposure, error) {
	var row struct {
		EncounterCount  int   `db:"encounter_count"`
		LastEncounterAt int64 `db:"last_encounter_at"`
	}
	err := db.conn.GetContext(ctx, &row,
		`SELECT encounter_count, last_encounter_at FROM exposures WHERE actor_id = ? AND archetype = ?`,
		actorID, archetype,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lucidity.Exposure{ActorID: actorID, Archetype: archetype}, nil
		}
		return lucidity.Exposure{}, fmt.Errorf("load exposure: %w", err)
	}
	return lucidity.Exposure{
		ActorID:         actorID,
		Archetype:       archetype,
		EncounterCount:  row.EncounterCount,
		LastEncounterAt: fromMillis(row.LastEncounterAt),
	}, nil
}

// IncrementExposure bumps the encounter counter and returns the new count.
func (db *DB) IncrementExposure(ctx context.Context, actorID, archetype string, at time.Time) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count,
		`INSERT INTO exposures (actor_id, archetype, encounter_count, last_encounter_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(actor_id, archetype) DO UPDATE SET
		   encounter_count = encounter_count + 1,
		   last_encounter_at = excluded.last_encounter_at
		 RETURNING encounter_count`,
		actorID, archetype, toMillis(at),
	)
	if err != nil {
		return 0, fmt.Errorf("increment exposure: %w", err)
	}
	return count, nil
}

// Cooldown returns the expiry for an actor/action pair; the zero time
// means no cooldown is recorded.
func (db *DB) Cooldown(ctx context.Context, actorID, action string) (time.Time, error) {
	var expires int64
	err := db.conn.GetContext(ctx, &expires,
		`SELECT expires_at FROM cooldowns WHERE actor_id = ? AND action = ?`,
		actorID, action,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("load cooldown: %w", err)
	}
	return fromMillis(expires), nil
}

// SetCooldown overwrites the expiry for an actor/action pair.
func (db *DB) SetCooldown(ctx context.Context, actorID, action string, expiry time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cooldowns (actor_id, action, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(actor_id, action) DO UPDATE SET expires_at = excluded.expires_at`,
		actorID, action, toMillis(expiry),
	)
	if err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// UpsertPresence refreshes an actor's room and activity timestamp,
// creating the presence row on first sight.
func (db *DB) UpsertPresence(ctx context.Context, info lucidity.ActorInfo) error {
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = info.LastActiveAt
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO actors (actor_id, room_id, last_active_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(actor_id) DO UPDATE SET
		   room_id = excluded.room_id,
		   last_active_at = excluded.last_active_at`,
		info.ActorID, info.RoomID, toMillis(info.LastActiveAt), toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// ListActiveActors returns actors active since activeSince or created
// since createdSince, with their current tier joined in for companion
// math. Actors without a ledger row yet count as stable.
func (db *DB) ListActiveActors(ctx context.Context, activeSince, createdSince time.Time) ([]lucidity.ActorInfo, error) {
	rows, err := db.conn.QueryxContext(ctx,
		`SELECT a.actor_id, a.room_id, a.last_active_at, a.created_at,
		        COALESCE(r.tier, 0) AS tier
		   FROM actors a
		   LEFT JOIN lucidity_records r ON r.actor_id = a.actor_id
		  WHERE a.last_active_at >= ? OR a.created_at >= ?
		  ORDER BY a.actor_id`,
		toMillis(activeSince), toMillis(createdSince),
	)
	if err != nil {
		return nil, fmt.Errorf("list active actors: %w", err)
	}
	defer rows.Close()

	var out []lucidity.ActorInfo
	for rows.Next() {
		var row struct {
			ActorID      string `db:"actor_id"`
			RoomID       string `db:"room_id"`
			LastActiveAt int64  `db:"last_active_at"`
			CreatedAt    int64  `db:"created_at"`
			Tier         int    `db:"tier"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		out = append(out, lucidity.ActorInfo{
			ActorID:      row.ActorID,
			RoomID:       row.RoomID,
			Tier:         lucidity.Tier(row.Tier),
			LastActiveAt: fromMillis(row.LastActiveAt),
			CreatedAt:    fromMillis(row.CreatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active actors: %w", err)
	}
	return out, nil
}

// RecentLog returns the most recent adjustment-log entries for an actor.
func (db *DB) RecentLog(ctx context.Context, actorID string, limit int) ([]lucidity.LogEntry, error) {
	rows, err := db.conn.QueryxContext(ctx,
		`SELECT id, actor_id, delta, reason, metadata_json, location_id, created_at
		   FROM adjustment_log
		  WHERE actor_id = ?
		  ORDER BY created_at DESC, rowid DESC
		  LIMIT ?`,
		actorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent log: %w", err)
	}
	defer rows.Close()

	var out []lucidity.LogEntry
	for rows.Next() {
		var row struct {
			ID           string         `db:"id"`
			ActorID      string         `db:"actor_id"`
			Delta        int            `db:"delta"`
			Reason       string         `db:"reason"`
			MetadataJSON sql.NullString `db:"metadata_json"`
			LocationID   sql.NullString `db:"location_id"`
			CreatedAt    int64          `db:"created_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry := lucidity.LogEntry{
			ID:         row.ID,
			ActorID:    row.ActorID,
			Delta:      row.Delta,
			Reason:     row.Reason,
			LocationID: row.LocationID.String,
			CreatedAt:  fromMillis(row.CreatedAt),
		}
		if row.MetadataJSON.Valid {
			if err := json.Unmarshal([]byte(row.MetadataJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent log: %w", err)
	}
	return out, nil
}

var _ lucidity.Ledger = (*DB)(nil)
