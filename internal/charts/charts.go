// Package charts renders the fixed set of bar charts offered for download.
package charts

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// FigureCount is the number of figures Render always returns.
const FigureCount = 5

// Renderer draws one bar chart per table with numeric data, padding with
// "no data" charts so there are always FigureCount figures.
type Renderer struct {
	Width    int
	Height   int
	MaxBars  int
	MaxLabel int
}

// New returns a renderer with default dimensions.
func New() *Renderer {
	return &Renderer{Width: 1024, Height: 512, MaxBars: 20, MaxLabel: 14}
}

// Series is the data behind one figure.
type Series struct {
	Label      string // Table label
	Title      string
	LabelCol   string
	ValueCol   string
	Categories []string
	Values     []float64
}

// Render implements core.ChartRenderer.
func (r *Renderer) Render(tables *core.TableSet) ([]core.Figure, error) {
	var series []Series
	_ = tables.Each(func(label string, t *core.Table) error {
		if len(series) == FigureCount {
			return nil
		}
		if s, ok := r.seriesFor(label, t); ok {
			series = append(series, s)
		}
		return nil
	})

	figures := make([]core.Figure, 0, FigureCount)
	for i := 0; i < FigureCount; i++ {
		var s Series
		if i < len(series) {
			s = series[i]
		} else {
			s = Series{Title: "No data", Categories: []string{"no data"}, Values: []float64{0}}
		}

		png, err := r.draw(s)
		if err != nil {
			return nil, fmt.Errorf("render figure %d: %w", i+1, err)
		}
		figures = append(figures, core.Figure{
			Name:  fmt.Sprintf("chart-%d.png", i+1),
			Title: s.Title,
			PNG:   png,
		})
	}
	return figures, nil
}

// seriesFor plots the first text column against the first numeric column.
// Tables without a numeric column are skipped.
func (r *Renderer) seriesFor(label string, t *core.Table) (Series, bool) {
	valueCol := -1
	for c := range t.Columns {
		if columnKind(t, c) == kindNumber {
			valueCol = c
			break
		}
	}
	if valueCol < 0 {
		return Series{}, false
	}

	labelCol := -1
	for c := range t.Columns {
		if c != valueCol && columnKind(t, c) == kindText {
			labelCol = c
			break
		}
	}

	s := Series{Label: label, ValueCol: t.Columns[valueCol]}
	if labelCol >= 0 {
		s.LabelCol = t.Columns[labelCol]
	}

	for row := 0; row < t.NumRows() && len(s.Values) < r.maxBars(); row++ {
		v, ok := number(t.Cell(row, valueCol))
		if !ok {
			continue
		}
		cat := fmt.Sprintf("Row %d", row+1)
		if labelCol >= 0 {
			if txt := fmt.Sprint(t.Cell(row, labelCol)); t.Cell(row, labelCol) != nil && txt != "" {
				cat = txt
			}
		}
		s.Categories = append(s.Categories, r.shorten(cat))
		s.Values = append(s.Values, v)
	}
	if len(s.Values) == 0 {
		return Series{}, false
	}

	s.Title = fmt.Sprintf("%s: %s", label, s.ValueCol)
	if s.LabelCol != "" {
		s.Title += " by " + s.LabelCol
	}
	if t.Title != "" {
		s.Title += " (" + t.Title + ")"
	}
	return s, true
}

func (r *Renderer) draw(s Series) ([]byte, error) {
	bars := make([]chart.Value, len(s.Values))
	lo, hi := 0.0, 0.0
	for i, v := range s.Values {
		bars[i] = chart.Value{Value: v, Label: s.Categories[i]}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	spacing := 10
	barWidth := (r.Width-120)/len(bars) - spacing
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 6 {
		barWidth = 6
	}

	graph := chart.BarChart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) maxBars() int {
	if r.MaxBars <= 0 {
		return 20
	}
	return r.MaxBars
}

func (r *Renderer) shorten(s string) string {
	runes := []rune(s)
	if r.MaxLabel <= 0 || len(runes) <= r.MaxLabel {
		return s
	}
	return string(runes[:r.MaxLabel-1]) + "…"
}

type kind int

const (
	kindEmpty kind = iota
	kindNumber
	kindText
	kindOther
)

// columnKind classifies a column by the majority of its non-nil cells.
func columnKind(t *core.Table, col int) kind {
	var numbers, texts, other int
	for row := 0; row < t.NumRows(); row++ {
		switch v := t.Cell(row, col).(type) {
		case nil:
		case string:
			if v != "" {
				texts++
			}
		case time.Time, bool:
			other++
		default:
			if _, ok := number(v); ok {
				numbers++
			} else {
				other++
			}
		}
	}

	switch {
	case numbers == 0 && texts == 0 && other == 0:
		return kindEmpty
	case numbers > texts && numbers >= other:
		return kindNumber
	case texts >= numbers && texts >= other:
		return kindText
	default:
		return kindOther
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
