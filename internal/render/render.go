package render

import (
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/compare"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/domain"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const dateLayout = "2006-01-02"

type point struct {
	at    time.Time
	value float64
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    3,
	}
}

// runSeries turns contiguous runs into series. go-chart needs at least two X
// values per series, so single-point runs are padded by a few hours.
func runSeries(name string, runs [][]point, style chart.Style) []chart.Series {
	series := make([]chart.Series, 0, len(runs))
	for _, run := range runs {
		if len(run) == 1 {
			run = append(run, point{at: run[0].at.Add(6 * time.Hour), value: run[0].value})
		}
		xs := make([]time.Time, len(run))
		ys := make([]float64, len(run))
		for i, p := range run {
			xs[i] = p.at
			ys[i] = p.value
		}
		series = append(series, chart.TimeSeries{Name: name, XValues: xs, YValues: ys, Style: style})
	}
	return series
}

// splitRuns breaks a sparse column into runs at every missing value.
func splitRuns(rows []compare.Row, pick func(compare.Row) *float64) [][]point {
	var runs [][]point
	var current []point
	for _, r := range rows {
		v := pick(r)
		at, err := time.Parse(dateLayout, r.Date)
		if v == nil || err != nil {
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			continue
		}
		current = append(current, point{at: at, value: *v})
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

func yRange(runs ...[][]point) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rs := range runs {
		for _, run := range rs {
			for _, p := range run {
				lo = min(lo, p.value)
				hi = max(hi, p.value)
			}
		}
	}
	pad := max((hi-lo)*0.05, 1)
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func draw(w io.Writer, title string, series []chart.Series, legend []chart.Series, yr *chart.ContinuousRange) error {
	ch := chart.Chart{
		Title:      title,
		Width:      constants.ChartWidth,
		Height:     constants.ChartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat(dateLayout)},
		YAxis:      chart.YAxis{Name: "Rating", Range: yr},
		Series:     series,
	}

	if len(legend) > 0 {
		// One entry per user rather than per run.
		legendChart := ch
		legendChart.Series = legend
		ch.Elements = []chart.Renderable{chart.Legend(&legendChart)}
	}

	if err := ch.Render(chart.PNG, w); err != nil {
		return apperr.Internal("render_failed", "failed to render chart", err)
	}
	return nil
}

// ComparisonPNG draws both users' ratings on one chart. Dates where a user
// has no value break that user's line instead of being interpolated.
func ComparisonPNG(w io.Writer, title, label1, label2 string, rows []compare.Row) error {
	runs1 := splitRuns(rows, func(r compare.Row) *float64 { return r.User1 })
	runs2 := splitRuns(rows, func(r compare.Row) *float64 { return r.User2 })
	if len(runs1) == 0 && len(runs2) == 0 {
		return apperr.NotFound("no_history", "neither user has rating history")
	}

	s1 := runSeries(label1, runs1, lineStyle(chart.ColorBlue))
	s2 := runSeries(label2, runs2, lineStyle(chart.ColorRed))

	var legend []chart.Series
	if len(s1) > 0 {
		legend = append(legend, s1[0])
	}
	if len(s2) > 0 {
		legend = append(legend, s2[0])
	}

	return draw(w, title, append(s1, s2...), legend, yRange(runs1, runs2))
}

func HistoryPNG(w io.Writer, title string, points []domain.HistoryPoint) error {
	var run []point
	for _, p := range points {
		at, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		run = append(run, point{at: at, value: p.Score})
	}
	if len(run) == 0 {
		return apperr.NotFound("no_history", fmt.Sprintf("no rating history for %q", title))
	}

	runs := [][]point{run}
	return draw(w, title, runSeries(title, runs, lineStyle(chart.ColorBlue)), nil, yRange(runs))
}
