package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/batuaribakir/StockSig/internal/analysis"
)

// SQLiteRecorder persists analysis runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs
// migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external readers can inspect runs while recording.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id                TEXT PRIMARY KEY,
			symbol                TEXT NOT NULL,
			recorded_at           INTEGER NOT NULL,
			bars                  INTEGER,
			initial_capital       REAL,
			final_value           REAL,
			total_return_pct      REAL,
			annualized_return_pct REAL,
			max_drawdown_pct      REAL,
			sharpe_ratio          REAL,
			total_trades          INTEGER,
			buy_trades            INTEGER,
			sell_trades           INTEGER,
			buy_success_rate      REAL,
			sell_success_rate     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol)`,

		`CREATE TABLE IF NOT EXISTS run_signals (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			date            TEXT NOT NULL,
			ma_signal       INTEGER,
			macd_signal     INTEGER,
			rsi_signal      INTEGER,
			bb_signal       INTEGER,
			pattern_signal  INTEGER,
			sr_signal       INTEGER,
			composite_score REAL,
			signal          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_signals_run ON run_signals(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun persists the run summary and every signal row.
func (r *SQLiteRecorder) RecordRun(res *analysis.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := res.Report
	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, symbol, recorded_at, bars, initial_capital, final_value,
		 total_return_pct, annualized_return_pct, max_drawdown_pct, sharpe_ratio,
		 total_trades, buy_trades, sell_trades, buy_success_rate, sell_success_rate)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.RunID.String(), res.Symbol, time.Now().Unix(), len(res.Bars),
		rep.InitialCapital, rep.FinalValue,
		rep.TotalReturnPct, rep.AnnualizedReturnPct, rep.MaxDrawdownPct, rep.SharpeRatio,
		rep.TotalTrades, rep.BuyTrades, rep.SellTrades,
		rep.BuySuccessRate, rep.SellSuccessRate,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO run_signals
		(run_id, date, ma_signal, macd_signal, rsi_signal, bb_signal,
		 pattern_signal, sr_signal, composite_score, signal)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range res.Signals.Rows {
		if _, err := stmt.Exec(
			res.RunID.String(), row.Time.Format("2006-01-02"),
			row.MA, row.MACD, row.RSI, row.Bollinger, row.Pattern, row.SR,
			row.Composite, row.Decision,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert signal row: %w", err)
		}
	}

	return tx.Commit()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
