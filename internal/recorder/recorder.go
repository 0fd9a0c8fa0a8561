package recorder

import (
	"github.com/batuaribakir/StockSig/internal/analysis"
)

// Recorder persists analysis runs for later inspection. The core pipeline
// never requires one; callers wire a recorder in at the edge.
type Recorder interface {
	// RecordRun persists the run summary and its per-bar signal rows.
	RecordRun(res *analysis.Result) error

	// Close releases any underlying resources.
	Close() error
}

// Noop is a Recorder that discards everything.
type Noop struct{}

func (Noop) RecordRun(*analysis.Result) error { return nil }
func (Noop) Close() error                     { return nil }
