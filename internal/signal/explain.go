package signal

import (
	"fmt"
	"math"

	"github.com/batuaribakir/StockSig/internal/pattern"
)

// Explanation describes why a given bar produced its decision. Each rule
// family carries the structured data behind its vote; rendering to text is a
// separate formatting step on each status type.
type Explanation struct {
	Date      string          `json:"date"`
	Signal    string          `json:"final_signal"`
	Composite float64         `json:"composite_score"`
	MA        MAStatus        `json:"moving_averages"`
	MACD      MACDStatus      `json:"macd"`
	RSI       RSIStatus       `json:"rsi"`
	Bollinger BollingerStatus `json:"bollinger_bands"`
	Patterns  PatternStatus   `json:"chart_patterns"`
	SR        SRStatus        `json:"support_resistance"`
}

// MAStatus reports the moving-average crossover vote.
type MAStatus struct {
	Vote  int     `json:"value"`
	EMA12 float64 `json:"ema_12"`
	EMA26 float64 `json:"ema_26"`
	SMA20 float64 `json:"sma_20"`
	SMA50 float64 `json:"sma_50"`
}

func (s MAStatus) String() string {
	switch s.Vote {
	case 1:
		return "Bullish crossover (EMA12 > EMA26 and SMA20 > SMA50)"
	case -1:
		return "Bearish crossover (EMA12 < EMA26 and SMA20 < SMA50)"
	default:
		return "No clear MA crossover"
	}
}

// MACDStatus reports the MACD crossover vote and histogram momentum.
type MACDStatus struct {
	Vote      int     `json:"value"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal_line"`
	Histogram float64 `json:"histogram"`
}

func (s MACDStatus) String() string {
	var msg string
	switch s.Vote {
	case 1:
		msg = "Bullish crossover (MACD > Signal Line)"
	case -1:
		msg = "Bearish crossover (MACD < Signal Line)"
	default:
		msg = "No MACD crossover"
	}
	if s.Histogram > 0 {
		return msg + "; histogram above zero (bullish momentum)"
	}
	return msg + "; histogram below zero (bearish momentum)"
}

// RSIStatus reports the RSI threshold vote and observed value.
type RSIStatus struct {
	Vote int     `json:"value"`
	RSI  float64 `json:"rsi"`
}

func (s RSIStatus) String() string {
	switch s.Vote {
	case 1:
		return fmt.Sprintf("Oversold (RSI: %.1f < 30)", s.RSI)
	case -1:
		return fmt.Sprintf("Overbought (RSI: %.1f > 70)", s.RSI)
	default:
		return fmt.Sprintf("Neutral (RSI: %.1f)", s.RSI)
	}
}

// BollingerStatus reports the band-breach vote and band geometry.
type BollingerStatus struct {
	Vote   int     `json:"value"`
	Close  float64 `json:"close"`
	Upper  float64 `json:"bb_upper"`
	Middle float64 `json:"bb_middle"`
	Lower  float64 `json:"bb_lower"`
}

func (s BollingerStatus) String() string {
	var msg string
	switch s.Vote {
	case 1:
		msg = fmt.Sprintf("Price below lower band (%.2f < %.2f)", s.Close, s.Lower)
	case -1:
		msg = fmt.Sprintf("Price above upper band (%.2f > %.2f)", s.Close, s.Upper)
	default:
		msg = fmt.Sprintf("Price within bands (%.2f < %.2f < %.2f)", s.Lower, s.Close, s.Upper)
	}
	if s.Middle != 0 && (s.Upper-s.Lower)/s.Middle > 0.1 {
		return msg + "; high volatility (wide bands)"
	}
	return msg + "; low volatility (narrow bands)"
}

// PatternStatus reports the aggregate pattern vote and the formations active
// on the bar.
type PatternStatus struct {
	Vote   int      `json:"value"`
	Active []string `json:"active"`
}

func (s PatternStatus) String() string {
	if len(s.Active) == 0 {
		return "No significant patterns detected"
	}
	out := s.Active[0]
	for _, a := range s.Active[1:] {
		out += ", " + a
	}
	return out
}

// SRStatus reports the support/resistance proximity vote. Support and
// Resistance are NaN when no level is attached to the bar.
type SRStatus struct {
	Vote       int     `json:"value"`
	Close      float64 `json:"close"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

func (s SRStatus) String() string {
	switch s.Vote {
	case 1:
		return fmt.Sprintf("Near support level (%.2f <= %.2f)", s.Close, s.Support)
	case -1:
		return fmt.Sprintf("Near resistance level (%.2f >= %.2f)", s.Close, s.Resistance)
	default:
		return "Between significant support/resistance levels"
	}
}

// Explain returns the structured justification for the decision on the given
// date (YYYY-MM-DD). An empty date explains the most recent bar. Returns
// ErrDateNotFound when the date is absent from the series.
func (t *Table) Explain(date string) (*Explanation, error) {
	if date == "" {
		date = t.bars[len(t.bars)-1].Time.Format("2006-01-02")
	}
	i, ok := t.byDate[date]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}

	r := t.Rows[i]
	label := "Hold"
	switch r.Decision {
	case Buy:
		label = "Buy"
	case Sell:
		label = "Sell"
	}

	return &Explanation{
		Date:      date,
		Signal:    label,
		Composite: math.Round(r.Composite*100) / 100,
		MA: MAStatus{
			Vote:  r.MA,
			EMA12: t.ind.EMA12[i],
			EMA26: t.ind.EMA26[i],
			SMA20: t.ind.SMA20[i],
			SMA50: t.ind.SMA50[i],
		},
		MACD: MACDStatus{
			Vote:      r.MACD,
			MACD:      t.ind.MACD[i],
			Signal:    t.ind.MACDSignal[i],
			Histogram: t.ind.MACDHist[i],
		},
		RSI: RSIStatus{
			Vote: r.RSI,
			RSI:  t.ind.RSI14[i],
		},
		Bollinger: BollingerStatus{
			Vote:   r.Bollinger,
			Close:  t.bars[i].Close,
			Upper:  t.ind.BBUpper[i],
			Middle: t.ind.BBMiddle[i],
			Lower:  t.ind.BBLower[i],
		},
		Patterns: PatternStatus{
			Vote:   r.Pattern,
			Active: activePatterns(t.pat, i),
		},
		SR: SRStatus{
			Vote:       r.SR,
			Close:      t.bars[i].Close,
			Support:    t.pat.Support[i],
			Resistance: t.pat.Resistance[i],
		},
	}, nil
}

// activePatterns lists the formations confirmed on bar i, labeled by
// direction.
func activePatterns(pat *pattern.Markers, i int) []string {
	var out []string
	add := func(marker int, name string) {
		switch marker {
		case 1:
			out = append(out, "bullish "+name)
		case -1:
			out = append(out, "bearish "+name)
		}
	}
	add(pat.HeadShoulders[i], "Head and Shoulders")
	add(pat.DoubleTop[i], "Double Top")
	add(pat.DoubleBottom[i], "Double Bottom")
	add(pat.TriangleAsc[i], "Ascending Triangle")
	add(pat.TriangleDesc[i], "Descending Triangle")
	add(pat.TriangleSym[i], "Symmetrical Triangle")
	return out
}
