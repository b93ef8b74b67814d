package notifier

import (
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"SharpeSentinel/internal/calculator"
	"SharpeSentinel/internal/model"
)

// RenderAllocationChart draws the value of the best portfolio over the
// window as a PNG line chart.
func RenderAllocationChart(rep *model.Report) ([]byte, error) {
	if len(rep.Values) == 0 {
		return nil, fmt.Errorf("no values to chart")
	}
	if len(rep.Dates) != len(rep.Values) {
		return nil, fmt.Errorf("%d dates for %d values", len(rep.Dates), len(rep.Values))
	}

	labels := make([]string, len(rep.Dates))
	for i, d := range rep.Dates {
		if len(rep.Dates) <= 60 {
			labels[i] = d.Format("Jan 02")
		} else {
			labels[i] = d.Format("Jan '06")
		}
	}

	high, low, err := calculator.Range(rep.Values)
	if err != nil {
		return nil, err
	}
	padding := (high - low) * 0.05
	if padding == 0 {
		padding = 0.05
	}
	yMin, yMax := low-padding, high+padding

	parts := make([]string, 0, len(rep.Symbols))
	for i, sym := range rep.Symbols {
		if w := rep.Best.Allocation[i]; w > 0 {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", sym, w*100))
		}
	}
	title := "Best allocation: " + strings.Join(parts, ", ")
	if len(parts) == 0 {
		title = "No allocation selected"
	}
	subtitle := fmt.Sprintf("Sharpe: %.2f | Return: %+.2f%% | MaxDD: %.2f%%",
		rep.Best.SharpeRatio, rep.CompoundReturn*100, rep.MaxDrawdown*100)

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = len(labels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{rep.Values},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(900),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("chart bytes: %w", err)
	}
	return buf, nil
}

// RenderWeightsChart draws the non-zero weights of an allocation as a pie.
func RenderWeightsChart(symbols []string, alloc model.Allocation) ([]byte, error) {
	var (
		values []float64
		labels []string
	)
	for i, w := range alloc {
		if w <= 0 || i >= len(symbols) {
			continue
		}
		values = append(values, w)
		labels = append(labels, fmt.Sprintf("%s (%.0f%%)", symbols[i], w*100))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("allocation holds nothing")
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc("Allocation"),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(600),
		charts.HeightOptionFunc(450),
	)
	if err != nil {
		return nil, fmt.Errorf("render pie: %w", err)
	}
	return p.Bytes()
}
