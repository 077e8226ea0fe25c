// Package chart renders the compounded equity curve of a return series.
package chart

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"backtester/internal/report"
)

// Supported backends.
const (
	BackendPNG  = "png"
	BackendSVG  = "svg"
	BackendText = "text"
)

// EmptyMessage is written instead of a chart when there are no returns.
const EmptyMessage = "no return data to plot"

const textWidth = 50

// UnsupportedBackendError is returned by Render for an unknown backend name.
type UnsupportedBackendError struct {
	Backend string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("unsupported chart backend %q, choose one of: %s", e.Backend, strings.Join(Backends(), " / "))
}

// Backends returns the supported backend names.
func Backends() []string {
	return []string{BackendPNG, BackendSVG, BackendText}
}

// Render writes the equity curve of returns to w using backend. An empty
// series writes EmptyMessage and returns nil whatever the backend.
func Render(w io.Writer, returns []float64, backend, title string) error {
	if len(returns) == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}
	if title == "" {
		title = "Strategy performance"
	}

	curve := report.EquityCurve(returns)
	switch backend {
	case BackendPNG:
		return renderImage(w, curve, title, charts.PNGTypeOption())
	case BackendSVG:
		return renderImage(w, curve, title, charts.SVGTypeOption())
	case BackendText:
		return renderText(w, curve, title)
	default:
		return &UnsupportedBackendError{Backend: backend}
	}
}

func renderImage(w io.Writer, curve []float64, title string, typ charts.OptionFunc) error {
	labels := make([]string, len(curve))
	for i := range curve {
		labels[i] = strconv.Itoa(i)
	}

	splitNum := len(labels) / 3
	if splitNum < 3 {
		splitNum = 3
	}
	if splitNum > 10 {
		splitNum = 10
	}

	p, err := charts.LineRender(
		[][]float64{curve},
		typ,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendLabelsOptionFunc([]string{"Equity curve"}, charts.PositionRight),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	_, err = w.Write(buf)
	return err
}

// renderText draws one horizontal bar per point, scaled between the curve's
// minimum and maximum.
func renderText(w io.Writer, curve []float64, title string) error {
	lo, hi := curve[0], curve[0]
	for _, v := range curve {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", len(title)))
	for i, v := range curve {
		n := textWidth
		if hi > lo {
			n = 1 + int((v-lo)/(hi-lo)*float64(textWidth-1))
		}
		fmt.Fprintf(&b, "%5d %10.4f |%s\n", i, v, strings.Repeat("#", n))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
