package signal

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/batuaribakir/StockSig/internal/indicator"
	"github.com/batuaribakir/StockSig/internal/pattern"
	"github.com/batuaribakir/StockSig/pkg/model"
)

// Decision values.
const (
	Sell = -1
	Hold = 0
	Buy  = 1
)

// Composite score thresholds: roughly a third of the maximum confirming
// weight must agree before acting.
const (
	buyThreshold  = 3.0
	sellThreshold = -3.0
)

// RSI threshold levels.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// ErrDateNotFound is returned by Explain for dates absent from the table.
var ErrDateNotFound = errors.New("date not present in signal table")

// Weights control how much each rule family contributes to the composite.
type Weights struct {
	MA        float64 `yaml:"ma"`
	MACD      float64 `yaml:"macd"`
	RSI       float64 `yaml:"rsi"`
	Bollinger float64 `yaml:"bollinger"`
	Pattern   float64 `yaml:"pattern"`
	SR        float64 `yaml:"sr"`
}

// DefaultWeights returns the standard rule-family weights.
func DefaultWeights() Weights {
	return Weights{
		MA:        2.0,
		MACD:      1.5,
		RSI:       1.0,
		Bollinger: 1.0,
		Pattern:   2.0,
		SR:        1.5,
	}
}

// Score computes the weighted composite of a row's sub-signals.
func (w Weights) Score(r Row) float64 {
	return float64(r.MA)*w.MA +
		float64(r.MACD)*w.MACD +
		float64(r.RSI)*w.RSI +
		float64(r.Bollinger)*w.Bollinger +
		float64(r.Pattern)*w.Pattern +
		float64(r.SR)*w.SR
}

// Row holds one timestamp's sub-signals, composite score and decision.
type Row struct {
	Time      time.Time `json:"time"`
	MA        int       `json:"ma_signal"`
	MACD      int       `json:"macd_signal"`
	RSI       int       `json:"rsi_signal"`
	Bollinger int       `json:"bb_signal"`
	Pattern   int       `json:"pattern_signal"`
	SR        int       `json:"sr_signal"`
	Composite float64   `json:"composite_score"`
	Decision  int       `json:"signal"`
}

// Table is the signal generator's output: one row per input bar, indexed by
// date for explanation lookups. It keeps read-only references to the inputs
// it was generated from so explanations can cite observed indicator values.
type Table struct {
	Rows []Row `json:"rows"`

	bars   []model.Bar
	ind    *indicator.Set
	pat    *pattern.Markers
	byDate map[string]int
}

// Generator fuses indicator and pattern series into trade decisions.
type Generator struct {
	weights Weights
}

// NewGenerator creates a signal generator with the given weights.
func NewGenerator(w Weights) *Generator {
	return &Generator{weights: w}
}

// Generate computes the six sub-signals, composite score and decision for
// every bar. The inputs must be aligned 1:1 with the bars.
func (g *Generator) Generate(bars []model.Bar, ind *indicator.Set, pat *pattern.Markers) (*Table, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}
	if ind.Len() != len(bars) {
		return nil, fmt.Errorf("indicator set has %d rows, want %d", ind.Len(), len(bars))
	}
	if len(pat.Support) != len(bars) {
		return nil, fmt.Errorf("pattern markers have %d rows, want %d", len(pat.Support), len(bars))
	}

	t := &Table{
		Rows:   make([]Row, len(bars)),
		bars:   bars,
		ind:    ind,
		pat:    pat,
		byDate: make(map[string]int, len(bars)),
	}

	for i, b := range bars {
		r := Row{Time: b.Time}

		// Moving-average confluence: both the EMA pair and the SMA pair
		// must agree before the family votes.
		switch {
		case ind.EMA12[i] > ind.EMA26[i] && ind.SMA20[i] > ind.SMA50[i]:
			r.MA = 1
		case ind.EMA12[i] < ind.EMA26[i] && ind.SMA20[i] < ind.SMA50[i]:
			r.MA = -1
		}

		switch {
		case ind.MACD[i] > ind.MACDSignal[i]:
			r.MACD = 1
		case ind.MACD[i] < ind.MACDSignal[i]:
			r.MACD = -1
		}

		switch {
		case ind.RSI14[i] < rsiOversold:
			r.RSI = 1
		case ind.RSI14[i] > rsiOverbought:
			r.RSI = -1
		}

		switch {
		case b.Close < ind.BBLower[i]:
			r.Bollinger = 1
		case b.Close > ind.BBUpper[i]:
			r.Bollinger = -1
		}

		r.Pattern = patternVote(pat, i)

		// Support/resistance: the resistance check runs last, so it wins
		// when both levels fire on the same bar.
		if !math.IsNaN(pat.Support[i]) && b.Close <= pat.Support[i] {
			r.SR = 1
		}
		if !math.IsNaN(pat.Resistance[i]) && b.Close >= pat.Resistance[i] {
			r.SR = -1
		}

		r.Composite = g.weights.Score(r)
		switch {
		case r.Composite >= buyThreshold:
			r.Decision = Buy
		case r.Composite <= sellThreshold:
			r.Decision = Sell
		}

		t.Rows[i] = r
		t.byDate[b.Time.Format("2006-01-02")] = i
	}

	return t, nil
}

// patternVote aggregates active pattern markers at index i: +1 per bullish
// confirmation, -1 per bearish confirmation.
func patternVote(pat *pattern.Markers, i int) int {
	vote := 0
	if pat.DoubleBottom[i] == 1 {
		vote++
	}
	if pat.TriangleAsc[i] == 1 {
		vote++
	}
	if pat.TriangleSym[i] == 1 {
		vote++
	}
	if pat.DoubleTop[i] == -1 {
		vote--
	}
	if pat.HeadShoulders[i] == -1 {
		vote--
	}
	if pat.TriangleDesc[i] == -1 {
		vote--
	}
	return vote
}

// Decisions returns the decision column, aligned with the input bars.
func (t *Table) Decisions() []int {
	out := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Decision
	}
	return out
}

// Latest returns the most recent row.
func (t *Table) Latest() Row {
	return t.Rows[len(t.Rows)-1]
}
