package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists backtest runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite history opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			mode       TEXT NOT NULL,
			model      TEXT,
			prompt     TEXT,
			total      INTEGER NOT NULL,
			correct    INTEGER NOT NULL,
			score      REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_started ON backtest_runs(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordRun inserts the run and returns its id.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO backtest_runs
		(started_at, mode, model, prompt, total, correct, score)
		VALUES (?,?,?,?,?,?,?)`,
		run.StartedAt.UnixMilli(), run.Mode, run.Model, run.Prompt, run.Total, run.Correct, run.Score,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert backtest run")
	}

	return res.LastInsertId()
}

// RecentRuns returns up to limit latest runs, oldest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id, started_at, mode, model, prompt, total, correct, score
		FROM (SELECT * FROM backtest_runs ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query backtest runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt int64
			model     sql.NullString
			prompt    sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedAt, &run.Mode, &model, &prompt, &run.Total, &run.Correct, &run.Score); err != nil {
			return nil, errors.Wrap(err, "scan backtest run")
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.Model = model.String
		run.Prompt = prompt.String
		runs = append(runs, run)
	}

	return runs, errors.Wrap(rows.Err(), "iterate backtest runs")
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite history")
	return r.db.Close()
}
