package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/batuaribakir/StockSig/internal/analysis"
	"github.com/batuaribakir/StockSig/pkg/model"
)

func makeResult(t *testing.T) *analysis.Result {
	t.Helper()

	n := 100
	bars := make([]model.Bar, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i)*0.1 + math.Sin(float64(i)/6)*3
		bars[i] = model.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000000,
		}
	}

	result, err := analysis.Run("TEST", bars, analysis.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to build result: %v", err)
	}
	return result
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	rec, err := NewSQLiteRecorder(dbPath)
	if err != nil {
		t.Fatalf("Failed to open recorder: %v", err)
	}
	defer rec.Close()

	result := makeResult(t)
	if err := rec.RecordRun(result); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	var symbol string
	var bars int
	err = rec.db.QueryRow(`SELECT symbol, bars FROM runs WHERE run_id = ?`,
		result.RunID.String()).Scan(&symbol, &bars)
	if err != nil {
		t.Fatalf("Failed to read run back: %v", err)
	}
	if symbol != "TEST" {
		t.Errorf("Expected symbol TEST, got %s", symbol)
	}
	if bars != len(result.Bars) {
		t.Errorf("Expected %d bars, got %d", len(result.Bars), bars)
	}

	var signalRows int
	err = rec.db.QueryRow(`SELECT COUNT(*) FROM run_signals WHERE run_id = ?`,
		result.RunID.String()).Scan(&signalRows)
	if err != nil {
		t.Fatalf("Failed to count signal rows: %v", err)
	}
	if signalRows != len(result.Signals.Rows) {
		t.Errorf("Expected %d signal rows, got %d", len(result.Signals.Rows), signalRows)
	}
}

func TestSQLiteRecorderMultipleRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	rec, err := NewSQLiteRecorder(dbPath)
	if err != nil {
		t.Fatalf("Failed to open recorder: %v", err)
	}
	defer rec.Close()

	for i := 0; i < 3; i++ {
		if err := rec.RecordRun(makeResult(t)); err != nil {
			t.Fatalf("Run %d: failed to record: %v", i, err)
		}
	}

	var count int
	if err := rec.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("Failed to count runs: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 runs, got %d", count)
	}
}

func TestSQLiteRecorderReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	rec, err := NewSQLiteRecorder(dbPath)
	if err != nil {
		t.Fatalf("Failed to open recorder: %v", err)
	}
	if err := rec.RecordRun(makeResult(t)); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// Migrations are idempotent and existing rows survive a reopen.
	rec, err = NewSQLiteRecorder(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen recorder: %v", err)
	}
	defer rec.Close()

	var count int
	if err := rec.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("Failed to count runs: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 run after reopen, got %d", count)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = Noop{}
	if err := r.RecordRun(nil); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
