package pattern

import (
	"math"

	"github.com/batuaribakir/StockSig/pkg/model"
)

// Config holds pattern detection parameters.
type Config struct {
	// Window is half the formation span: detectors scan a centered window
	// of 2*Window bars around each position.
	Window int
	// SRWindow is the centered pivot window for support/resistance levels.
	SRWindow int
	// SRThreshold filters near-duplicate levels: successive distinct levels
	// must differ by more than this fraction of the prior level.
	SRThreshold float64
}

// DefaultConfig returns the default detection parameters.
func DefaultConfig() Config {
	return Config{
		Window:      30,
		SRWindow:    20,
		SRThreshold: 0.02,
	}
}

// Markers holds per-bar pattern occurrence markers and support/resistance
// levels, aligned 1:1 with the input bars. Marker values are -1 (bearish),
// 0 (none) or 1 (bullish); only a pattern's confirmation bar carries a
// nonzero value. Support/Resistance are NaN where no level is attached.
type Markers struct {
	HeadShoulders []int
	DoubleTop     []int
	DoubleBottom  []int
	TriangleAsc   []int
	TriangleDesc  []int
	TriangleSym   []int

	Support    []float64
	Resistance []float64
}

// Engine scans a bar series for chart formations.
type Engine struct {
	cfg      Config
	progress func(done, total int)
}

// NewEngine creates a pattern engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = 30
	}
	if cfg.SRWindow <= 0 {
		cfg.SRWindow = 20
	}
	if cfg.SRThreshold <= 0 {
		cfg.SRThreshold = 0.02
	}
	return &Engine{cfg: cfg}
}

// SetProgressCallback registers a callback invoked as scan positions complete.
func (e *Engine) SetProgressCallback(fn func(done, total int)) {
	e.progress = fn
}

// Detect scans the series and returns confirmed formation markers plus
// support/resistance levels. Series shorter than a full formation span
// simply produce no marks.
func (e *Engine) Detect(bars []model.Bar) (*Markers, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}

	n := len(bars)
	m := &Markers{
		HeadShoulders: make([]int, n),
		DoubleTop:     make([]int, n),
		DoubleBottom:  make([]int, n),
		TriangleAsc:   make([]int, n),
		TriangleDesc:  make([]int, n),
		TriangleSym:   make([]int, n),
		Support:       make([]float64, n),
		Resistance:    make([]float64, n),
	}
	for i := range m.Support {
		m.Support[i] = math.NaN()
		m.Resistance[i] = math.NaN()
	}

	high := model.Highs(bars)
	low := model.Lows(bars)
	close := model.Closes(bars)

	w := e.cfg.Window
	total := n - 2*w
	if total < 0 {
		total = 0
	}

	for i := w; i < n-w; i++ {
		e.detectHeadShoulders(m, high, low, i)
		e.detectDoubleTop(m, high, low, i)
		e.detectDoubleBottom(m, high, low, i)
		e.detectTriangles(m, high, low, close, i)

		if e.progress != nil {
			e.progress(i-w+1, total)
		}
	}

	e.attachSupportResistance(m, high, low)

	return m, nil
}

// detectHeadShoulders confirms a head-and-shoulders top: shoulders strictly
// below the head, both above the neckline, within 2% of each other, in
// left < head < right temporal order. The right-shoulder bar is marked -1.
func (e *Engine) detectHeadShoulders(m *Markers, high, low []float64, i int) {
	w := e.cfg.Window

	leftHigh, leftIdx := maxAt(high, i-w, i)
	headHigh, headIdx := maxAt(high, i-w, i+w)
	rightHigh, rightIdx := maxAt(high, i, i+w)

	if headIdx <= leftIdx {
		return // head inside the left window, no neckline segment
	}
	neckline, _ := minAt(low, leftIdx, headIdx)

	if leftHigh < headHigh && rightHigh < headHigh &&
		leftHigh > neckline && rightHigh > neckline &&
		math.Abs(leftHigh-rightHigh) < 0.02*headHigh &&
		leftIdx < headIdx && headIdx < rightIdx {
		m.HeadShoulders[rightIdx] = -1
	}
}

// detectDoubleTop confirms two peaks within 2% of each other separated by at
// least half a window, with an intervening trough below the first peak.
// The second peak's bar is marked -1.
func (e *Engine) detectDoubleTop(m *Markers, high, low []float64, i int) {
	w := e.cfg.Window

	peak1, peak1Idx := maxAt(high, i-w, i)
	peak2, peak2Idx := maxAt(high, i, i+w)
	trough, _ := minAt(low, peak1Idx, peak2Idx)

	if math.Abs(peak1-peak2) < 0.02*peak1 &&
		trough < peak1 &&
		peak2Idx-peak1Idx >= w/2 {
		m.DoubleTop[peak2Idx] = -1
	}
}

// detectDoubleBottom mirrors detectDoubleTop over troughs; the second
// trough's bar is marked +1.
func (e *Engine) detectDoubleBottom(m *Markers, high, low []float64, i int) {
	w := e.cfg.Window

	trough1, trough1Idx := minAt(low, i-w, i)
	trough2, trough2Idx := minAt(low, i, i+w)
	peak, _ := maxAt(high, trough1Idx, trough2Idx)

	if math.Abs(trough1-trough2) < 0.02*trough1 &&
		peak > trough1 &&
		trough2Idx-trough1Idx >= w/2 {
		m.DoubleBottom[trough2Idx] = 1
	}
}

// detectTriangles classifies the full 2*Window span by least-squares slopes
// of highs and lows, marking the bar one window ahead of the position.
func (e *Engine) detectTriangles(m *Markers, high, low, close []float64, i int) {
	w := e.cfg.Window
	highs := high[i-w : i+w]
	lows := low[i-w : i+w]
	span := len(highs)

	// Extreme-of-5 comparison windows shrink with short spans.
	k := 5
	if span < k {
		k = span
	}

	highSlope := leastSquaresSlope(highs)
	lowSlope := leastSquaresSlope(lows)

	// Ascending: flat recent highs against rising lows.
	top := maxOf(highs)
	recentHigh := maxOf(highs[span-k:])
	earlyHigh := maxOf(highs[:k])
	if math.Abs(recentHigh-earlyHigh) < 0.01*top && lowSlope > 0 {
		m.TriangleAsc[i+w] = 1
	}

	// Descending: flat recent lows against falling highs.
	bottom := minOf(lows)
	recentLow := minOf(lows[span-k:])
	earlyLow := minOf(lows[:k])
	if math.Abs(recentLow-earlyLow) < 0.01*bottom && highSlope < 0 {
		m.TriangleDesc[i+w] = -1
	}

	// Symmetrical: converging slopes with the current spread under 70% of
	// the span-opening spread; direction follows price vs the midline.
	if highSlope < 0 && lowSlope > 0 &&
		math.Abs(highs[span-1]-lows[span-1]) < 0.7*math.Abs(highs[0]-lows[0]) {
		mid := (highs[span-1] + lows[span-1]) / 2
		if close[i+w] > mid {
			m.TriangleSym[i+w] = 1
		} else {
			m.TriangleSym[i+w] = -1
		}
	}
}

// attachSupportResistance finds pivot-based levels and attaches each retained
// level onto every bar whose high/low equals it. A retained level must differ
// from the previous distinct candidate by more than the configured threshold
// fraction, which filters clusters of near-duplicate pivots.
func (e *Engine) attachSupportResistance(m *Markers, high, low []float64) {
	w := e.cfg.SRWindow
	n := len(high)

	pivotHigh := centeredRollingMax(high, w)
	pivotLow := centeredRollingMin(low, w)

	var resCandidates, supCandidates []float64
	seenRes := make(map[float64]bool)
	seenSup := make(map[float64]bool)
	for i := 0; i < n; i++ {
		if !math.IsNaN(pivotHigh[i]) && high[i] == pivotHigh[i] && !seenRes[high[i]] {
			seenRes[high[i]] = true
			resCandidates = append(resCandidates, high[i])
		}
		if !math.IsNaN(pivotLow[i]) && low[i] == pivotLow[i] && !seenSup[low[i]] {
			seenSup[low[i]] = true
			supCandidates = append(supCandidates, low[i])
		}
	}

	for k := 1; k < len(resCandidates); k++ {
		level := resCandidates[k]
		if level-resCandidates[k-1] > level*e.cfg.SRThreshold {
			for i := 0; i < n; i++ {
				if high[i] == level {
					m.Resistance[i] = level
				}
			}
		}
	}
	for k := 1; k < len(supCandidates); k++ {
		level := supCandidates[k]
		if level-supCandidates[k-1] < -level*e.cfg.SRThreshold {
			for i := 0; i < n; i++ {
				if low[i] == level {
					m.Support[i] = level
				}
			}
		}
	}
}

// centeredRollingMax computes a centered rolling max of the given width.
// Positions without a full window are NaN.
func centeredRollingMax(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	off := (window - 1) / 2
	for i := range values {
		hi := i + off
		lo := hi - window + 1
		if lo < 0 || hi >= len(values) {
			out[i] = math.NaN()
			continue
		}
		v, _ := maxAt(values, lo, hi+1)
		out[i] = v
	}
	return out
}

// centeredRollingMin computes a centered rolling min of the given width.
func centeredRollingMin(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	off := (window - 1) / 2
	for i := range values {
		hi := i + off
		lo := hi - window + 1
		if lo < 0 || hi >= len(values) {
			out[i] = math.NaN()
			continue
		}
		v, _ := minAt(values, lo, hi+1)
		out[i] = v
	}
	return out
}

// maxAt returns the maximum value and its index over values[lo:hi),
// keeping the first occurrence on ties.
func maxAt(values []float64, lo, hi int) (float64, int) {
	best, idx := values[lo], lo
	for i := lo + 1; i < hi; i++ {
		if values[i] > best {
			best, idx = values[i], i
		}
	}
	return best, idx
}

// minAt returns the minimum value and its index over values[lo:hi).
func minAt(values []float64, lo, hi int) (float64, int) {
	best, idx := values[lo], lo
	for i := lo + 1; i < hi; i++ {
		if values[i] < best {
			best, idx = values[i], i
		}
	}
	return best, idx
}

func maxOf(values []float64) float64 {
	v, _ := maxAt(values, 0, len(values))
	return v
}

func minOf(values []float64) float64 {
	v, _ := minAt(values, 0, len(values))
	return v
}

// leastSquaresSlope fits a degree-1 line to values against x = 0..n-1
// and returns its slope.
func leastSquaresSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
