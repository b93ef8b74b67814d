package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists optimisation runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS optimization_runs (
			id                TEXT PRIMARY KEY,
			created_at        INTEGER NOT NULL,
			trigger_source    TEXT,
			symbols           TEXT NOT NULL,
			start_date        TEXT,
			end_date          TEXT,
			units             INTEGER,
			trading_days      INTEGER,
			allocation        TEXT NOT NULL,
			sharpe_ratio      REAL,
			volatility        REAL,
			mean_daily_return REAL,
			cumulative_return REAL,
			max_drawdown      REAL,
			compound_return   REAL,
			evaluated         INTEGER,
			skipped           INTEGER,
			elapsed_ms        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON optimization_runs(created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	alloc, err := json.Marshal(rec.Allocation)
	if err != nil {
		return fmt.Errorf("encode allocation: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO optimization_runs
		(id, created_at, trigger_source, symbols, start_date, end_date, units, trading_days,
		 allocation, sharpe_ratio, volatility, mean_daily_return, cumulative_return,
		 max_drawdown, compound_return, evaluated, skipped, elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.CreatedAt.UnixMilli(), rec.Trigger, strings.Join(rec.Symbols, ","),
		rec.Start, rec.End, rec.Units, rec.TradingDays,
		string(alloc), rec.Sharpe, rec.Volatility, rec.MeanDaily, rec.Cumulative,
		rec.MaxDrawdown, rec.CompoundReturn, rec.Evaluated, rec.Skipped, rec.ElapsedMS,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	r.log.Debug().Str("id", rec.ID).Str("trigger", rec.Trigger).Msg("run recorded")
	return nil
}

// LatestRun returns the most recently created run, or ErrNoRuns.
func (r *SQLiteRecorder) LatestRun() (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT id, created_at, trigger_source, symbols, start_date, end_date,
		units, trading_days, allocation, sharpe_ratio, volatility, mean_daily_return,
		cumulative_return, max_drawdown, compound_return, evaluated, skipped, elapsed_ms
		FROM optimization_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)

	var (
		rec     RunRecord
		created int64
		symbols string
		alloc   string
	)
	err := row.Scan(&rec.ID, &created, &rec.Trigger, &symbols, &rec.Start, &rec.End,
		&rec.Units, &rec.TradingDays, &alloc, &rec.Sharpe, &rec.Volatility, &rec.MeanDaily,
		&rec.Cumulative, &rec.MaxDrawdown, &rec.CompoundReturn, &rec.Evaluated, &rec.Skipped,
		&rec.ElapsedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created)
	if symbols != "" {
		rec.Symbols = strings.Split(symbols, ",")
	}
	if err := json.Unmarshal([]byte(alloc), &rec.Allocation); err != nil {
		return nil, fmt.Errorf("decode allocation: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
