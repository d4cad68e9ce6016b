package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"VolSentinel/internal/model"
)

// SQLiteRecorder persists cycle results to a local SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vbi_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_unix_ms  INTEGER NOT NULL,
			ts_iso_utc  TEXT,
			symbol      TEXT NOT NULL,
			status      TEXT NOT NULL,
			vbi_state   TEXT,
			vbi_score   INTEGER,
			near_iv     REAL,
			mid_iv      REAL,
			far_iv      REAL,
			iv_slope    REAL,
			curvature   REAL,
			skew        REAL,
			vbi_pattern TEXT,
			reason      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON vbi_snapshots(ts_unix_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON vbi_snapshots(symbol)`,

		`CREATE TABLE IF NOT EXISTS heartbeats (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_unix_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_heartbeats_ts ON heartbeats(ts_unix_ms)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(res *model.VbiResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res.Sanitize()
	_, err := r.db.Exec(`INSERT INTO vbi_snapshots
		(ts_unix_ms, ts_iso_utc, symbol, status, vbi_state, vbi_score,
		 near_iv, mid_iv, far_iv, iv_slope, curvature, skew, vbi_pattern, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.TsUnixMs, res.TsISOUTC, res.Symbol, res.Status,
		string(res.State), res.Score,
		res.NearIV, res.MidIV, res.FarIV,
		res.IVSlope, res.Curvature, res.Skew,
		string(res.Pattern), string(res.Reason),
	)
	return err
}

func (r *SQLiteRecorder) RecordHeartbeat(tsUnixMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO heartbeats (ts_unix_ms) VALUES (?)`, tsUnixMs)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
