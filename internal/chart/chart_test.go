package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRenderEmpty(t *testing.T) {
	for _, backend := range append(Backends(), "bogus") {
		var buf bytes.Buffer
		if err := Render(&buf, nil, backend, ""); err != nil {
			t.Fatalf("Render(%q) with no returns: %v", backend, err)
		}
		if got := strings.TrimSpace(buf.String()); got != EmptyMessage {
			t.Errorf("Render(%q) wrote %q, want %q", backend, got, EmptyMessage)
		}
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, []float64{0.1, -0.2, 0.05}, BackendText, "demo"); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Title, rule and one line per equity point.
	if len(lines) != 2+4 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), buf.String())
	}
	if lines[0] != "demo" {
		t.Errorf("title line = %q, want %q", lines[0], "demo")
	}
	if !strings.Contains(lines[2], "1.0000") {
		t.Errorf("first point = %q, want the 1.0 starting value", lines[2])
	}
	// Peak at 1.1 gets the full bar, trough at 0.88 a single mark.
	if got := strings.Count(lines[3], "#"); got != textWidth {
		t.Errorf("peak bar = %d marks, want %d", got, textWidth)
	}
	if got := strings.Count(lines[4], "#"); got != 1 {
		t.Errorf("trough bar = %d marks, want 1", got)
	}
}

func TestRenderTextFlat(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, []float64{0, 0}, BackendText, ""); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Strategy performance\n") {
		t.Errorf("missing default title:\n%s", buf.String())
	}
}

func TestRenderUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, []float64{0.01}, "plotly", "")
	var ube *UnsupportedBackendError
	if !errors.As(err, &ube) {
		t.Fatalf("Render error = %v, want *UnsupportedBackendError", err)
	}
	if ube.Backend != "plotly" {
		t.Errorf("Backend = %q, want %q", ube.Backend, "plotly")
	}
	if buf.Len() != 0 {
		t.Errorf("unsupported backend wrote %d bytes", buf.Len())
	}
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, []float64{0.01, 0.02, -0.01, 0.03}, BackendSVG, "svg demo"); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("svg output does not contain an <svg> element")
	}
}
