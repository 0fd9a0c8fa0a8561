package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/batuaribakir/StockSig/internal/indicator"
	"github.com/batuaribakir/StockSig/internal/pattern"
	"github.com/batuaribakir/StockSig/pkg/model"
)

// fixture holds hand-built aligned inputs for the generator.
type fixture struct {
	bars []model.Bar
	ind  *indicator.Set
	pat  *pattern.Markers
}

// neutralFixture builds n bars whose indicators produce all-zero sub-signals:
// every series is flat, so no crossover, breach or pattern fires.
func neutralFixture(n int) *fixture {
	f := &fixture{
		bars: make([]model.Bar, n),
		ind: &indicator.Set{
			SMA20:      make([]float64, n),
			SMA50:      make([]float64, n),
			EMA12:      make([]float64, n),
			EMA26:      make([]float64, n),
			RSI14:      make([]float64, n),
			BBUpper:    make([]float64, n),
			BBMiddle:   make([]float64, n),
			BBLower:    make([]float64, n),
			MACD:       make([]float64, n),
			MACDSignal: make([]float64, n),
			MACDHist:   make([]float64, n),
		},
		pat: &pattern.Markers{
			HeadShoulders: make([]int, n),
			DoubleTop:     make([]int, n),
			DoubleBottom:  make([]int, n),
			TriangleAsc:   make([]int, n),
			TriangleDesc:  make([]int, n),
			TriangleSym:   make([]int, n),
			Support:       make([]float64, n),
			Resistance:    make([]float64, n),
		},
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000000}

		f.ind.SMA20[i] = 100
		f.ind.SMA50[i] = 100
		f.ind.EMA12[i] = 100
		f.ind.EMA26[i] = 100
		f.ind.RSI14[i] = 50
		f.ind.BBUpper[i] = 105
		f.ind.BBMiddle[i] = 100
		f.ind.BBLower[i] = 95

		f.pat.Support[i] = math.NaN()
		f.pat.Resistance[i] = math.NaN()
	}
	return f
}

func TestGenerateEmptyInput(t *testing.T) {
	g := NewGenerator(DefaultWeights())
	f := neutralFixture(3)
	if _, err := g.Generate(nil, f.ind, f.pat); err == nil {
		t.Fatal("Expected error for empty bars, got nil")
	}
}

func TestGenerateMisalignedInputs(t *testing.T) {
	g := NewGenerator(DefaultWeights())
	f := neutralFixture(3)
	short := neutralFixture(2)

	if _, err := g.Generate(f.bars, short.ind, f.pat); err == nil {
		t.Error("Expected error for misaligned indicators")
	}
	if _, err := g.Generate(f.bars, f.ind, short.pat); err == nil {
		t.Error("Expected error for misaligned patterns")
	}
}

func TestNeutralInputsHold(t *testing.T) {
	g := NewGenerator(DefaultWeights())
	f := neutralFixture(3)

	table, err := g.Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i, r := range table.Rows {
		if r.Composite != 0 {
			t.Errorf("Row %d: expected composite 0, got %f", i, r.Composite)
		}
		if r.Decision != Hold {
			t.Errorf("Row %d: expected hold, got %d", i, r.Decision)
		}
	}
}

func TestSubSignals(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *fixture)
		check  func(t *testing.T, r Row)
	}{
		{
			name: "MA bullish requires both pairs to agree",
			modify: func(f *fixture) {
				f.ind.EMA12[0] = 101
				f.ind.SMA20[0] = 101
			},
			check: func(t *testing.T, r Row) {
				if r.MA != 1 {
					t.Errorf("Expected ma_signal 1, got %d", r.MA)
				}
			},
		},
		{
			name: "MA disagreement yields no vote",
			modify: func(f *fixture) {
				f.ind.EMA12[0] = 101 // EMA pair bullish
				f.ind.SMA20[0] = 99  // SMA pair bearish
			},
			check: func(t *testing.T, r Row) {
				if r.MA != 0 {
					t.Errorf("Expected ma_signal 0, got %d", r.MA)
				}
			},
		},
		{
			name: "MACD bearish crossover",
			modify: func(f *fixture) {
				f.ind.MACD[0] = -0.5
				f.ind.MACDSignal[0] = 0.5
			},
			check: func(t *testing.T, r Row) {
				if r.MACD != -1 {
					t.Errorf("Expected macd_signal -1, got %d", r.MACD)
				}
			},
		},
		{
			name: "RSI oversold",
			modify: func(f *fixture) {
				f.ind.RSI14[0] = 25
			},
			check: func(t *testing.T, r Row) {
				if r.RSI != 1 {
					t.Errorf("Expected rsi_signal 1, got %d", r.RSI)
				}
			},
		},
		{
			name: "RSI overbought",
			modify: func(f *fixture) {
				f.ind.RSI14[0] = 75
			},
			check: func(t *testing.T, r Row) {
				if r.RSI != -1 {
					t.Errorf("Expected rsi_signal -1, got %d", r.RSI)
				}
			},
		},
		{
			name: "RSI at threshold stays neutral",
			modify: func(f *fixture) {
				f.ind.RSI14[0] = 30
			},
			check: func(t *testing.T, r Row) {
				if r.RSI != 0 {
					t.Errorf("Expected rsi_signal 0 at exactly 30, got %d", r.RSI)
				}
			},
		},
		{
			name: "Bollinger breach below",
			modify: func(f *fixture) {
				f.ind.BBLower[0] = 100.5 // close 100 is below the lower band
			},
			check: func(t *testing.T, r Row) {
				if r.Bollinger != 1 {
					t.Errorf("Expected bb_signal 1, got %d", r.Bollinger)
				}
			},
		},
		{
			name: "Pattern votes accumulate",
			modify: func(f *fixture) {
				f.pat.DoubleBottom[0] = 1
				f.pat.TriangleAsc[0] = 1
				f.pat.HeadShoulders[0] = -1
			},
			check: func(t *testing.T, r Row) {
				if r.Pattern != 1 {
					t.Errorf("Expected pattern_signal 1 (2 bullish - 1 bearish), got %d", r.Pattern)
				}
			},
		},
		{
			name: "Support proximity",
			modify: func(f *fixture) {
				f.pat.Support[0] = 100.5 // close 100 at or below support
			},
			check: func(t *testing.T, r Row) {
				if r.SR != 1 {
					t.Errorf("Expected sr_signal 1, got %d", r.SR)
				}
			},
		},
		{
			name: "Resistance wins when both levels fire",
			modify: func(f *fixture) {
				f.pat.Support[0] = 100.5
				f.pat.Resistance[0] = 99.5 // close 100 at or above resistance
			},
			check: func(t *testing.T, r Row) {
				if r.SR != -1 {
					t.Errorf("Expected sr_signal -1 (resistance wins), got %d", r.SR)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := neutralFixture(1)
			tt.modify(f)

			table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.check(t, table.Rows[0])
		})
	}
}

func TestCompositeIsExactWeightedSum(t *testing.T) {
	f := neutralFixture(1)
	f.ind.EMA12[0] = 101 // ma +1
	f.ind.SMA20[0] = 101
	f.ind.MACD[0] = 1 // macd +1
	f.ind.RSI14[0] = 25
	f.pat.DoubleBottom[0] = 1 // pattern +1
	f.pat.Resistance[0] = 99  // sr -1

	w := DefaultWeights()
	table, err := NewGenerator(w).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	r := table.Rows[0]
	// ma(+1)*2.0 + macd(+1)*1.5 + rsi(+1)*1.0 + bb(0)*1.0 + pattern(+1)*2.0 + sr(-1)*1.5
	want := 2.0 + 1.5 + 1.0 + 0 + 2.0 - 1.5
	if r.Composite != want {
		t.Errorf("Expected composite %f, got %f", want, r.Composite)
	}
	if r.Decision != Buy {
		t.Errorf("Expected buy at composite %f, got %d", r.Composite, r.Decision)
	}
}

func TestAllSubSignalsBullish(t *testing.T) {
	f := neutralFixture(1)
	f.ind.EMA12[0] = 101
	f.ind.SMA20[0] = 101
	f.ind.MACD[0] = 1
	f.ind.RSI14[0] = 25
	f.ind.BBLower[0] = 100.5
	f.pat.DoubleBottom[0] = 1
	f.pat.Support[0] = 100.5

	table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	r := table.Rows[0]
	if r.Composite != 9.0 {
		t.Errorf("Expected maximum composite 9.0, got %f", r.Composite)
	}
	if r.Decision != Buy {
		t.Errorf("Expected buy, got %d", r.Decision)
	}
}

func TestDecisionThresholds(t *testing.T) {
	tests := []struct {
		name     string
		ma       int
		macd     int
		rsi      int
		expected int
	}{
		{"exactly at buy threshold", 1, 0, 1, Buy},    // 2.0 + 1.0 = 3.0
		{"just under buy threshold", 1, 0, 0, Hold},   // 2.0
		{"exactly at sell threshold", -1, 0, -1, Sell},
		{"strong sell", -1, -1, -1, Sell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := neutralFixture(1)
			if tt.ma != 0 {
				f.ind.EMA12[0] = 100 + float64(tt.ma)
				f.ind.SMA20[0] = 100 + float64(tt.ma)
			}
			if tt.macd != 0 {
				f.ind.MACD[0] = float64(tt.macd)
			}
			if tt.rsi > 0 {
				f.ind.RSI14[0] = 25
			} else if tt.rsi < 0 {
				f.ind.RSI14[0] = 75
			}

			table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := table.Rows[0].Decision; got != tt.expected {
				t.Errorf("Expected decision %d, got %d (composite %f)",
					tt.expected, got, table.Rows[0].Composite)
			}
		})
	}
}

func TestCustomWeights(t *testing.T) {
	f := neutralFixture(1)
	f.ind.RSI14[0] = 25 // rsi +1 only

	w := Weights{RSI: 5.0}
	table, err := NewGenerator(w).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	r := table.Rows[0]
	if r.Composite != 5.0 {
		t.Errorf("Expected composite 5.0 with custom weight, got %f", r.Composite)
	}
	if r.Decision != Buy {
		t.Errorf("Expected buy, got %d", r.Decision)
	}
}

func TestDecisionsAndLatest(t *testing.T) {
	f := neutralFixture(4)
	// Force a buy on the last bar only.
	f.ind.EMA12[3] = 101
	f.ind.SMA20[3] = 101
	f.ind.RSI14[3] = 25

	table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	decisions := table.Decisions()
	if len(decisions) != 4 {
		t.Fatalf("Expected 4 decisions, got %d", len(decisions))
	}
	for i := 0; i < 3; i++ {
		if decisions[i] != Hold {
			t.Errorf("Bar %d: expected hold, got %d", i, decisions[i])
		}
	}
	if decisions[3] != Buy {
		t.Errorf("Bar 3: expected buy, got %d", decisions[3])
	}

	if table.Latest().Decision != Buy {
		t.Errorf("Expected latest decision buy, got %d", table.Latest().Decision)
	}
}

func TestExplainLatestByDefault(t *testing.T) {
	f := neutralFixture(3)
	f.ind.RSI14[2] = 25

	table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	exp, err := table.Explain("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantDate := f.bars[2].Time.Format("2006-01-02")
	if exp.Date != wantDate {
		t.Errorf("Expected date %s, got %s", wantDate, exp.Date)
	}
	if exp.RSI.Vote != 1 {
		t.Errorf("Expected rsi vote 1, got %d", exp.RSI.Vote)
	}
	if exp.RSI.RSI != 25 {
		t.Errorf("Expected observed RSI 25, got %f", exp.RSI.RSI)
	}
}

func TestExplainDateNotFound(t *testing.T) {
	f := neutralFixture(3)
	table, err := NewGenerator(DefaultWeights()).Generate(f.bars, f.ind, f.pat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err = table.Explain("1999-12-31")
	if !errors.Is(err, ErrDateNotFound) {
		t.Errorf("Expected ErrDateNotFound, got %v", err)
	}
}

func TestExplainStatusRendering(t *testing.T) {
	rsi := RSIStatus{Vote: 1, RSI: 25.3}
	if got := rsi.String(); got != "Oversold (RSI: 25.3 < 30)" {
		t.Errorf("Unexpected RSI rendering: %q", got)
	}

	ma := MAStatus{Vote: 0}
	if got := ma.String(); got != "No clear MA crossover" {
		t.Errorf("Unexpected MA rendering: %q", got)
	}

	pat := PatternStatus{Vote: 0}
	if got := pat.String(); got != "No significant patterns detected" {
		t.Errorf("Unexpected pattern rendering: %q", got)
	}

	pat = PatternStatus{Vote: 1, Active: []string{"bullish Double Bottom", "bearish Double Top"}}
	if got := pat.String(); got != "bullish Double Bottom, bearish Double Top" {
		t.Errorf("Unexpected pattern rendering: %q", got)
	}
}
