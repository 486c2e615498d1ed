package simulation

import "testing"

func TestHistogramPercentilesAndSummary(t *testing.T) {
	h := Histogram{2: 10, 3: 60, 4: 25, 9: 5}

	summary := h.Summarize()
	if summary.Count != 100 || summary.Min != 2 || summary.Max != 9 {
		t.Fatalf("unexpected range %+v", summary)
	}
	if want := (2*10 + 3*60 + 4*25 + 9*5) / 100.0; summary.Mean != want {
		t.Fatalf("expected mean %v, got %v", want, summary.Mean)
	}
	if summary.P50 != 3 || summary.P90 != 4 || summary.P99 != 9 {
		t.Fatalf("unexpected percentiles %+v", summary)
	}
	if got := h.Percentile(0); got != 2 {
		t.Fatalf("expected the smallest bucket for q=0, got %d", got)
	}
	if got := h.Percentile(7); got != 9 {
		t.Fatalf("expected q to clamp at 1, got %d", got)
	}
}

func TestEmptyHistogram(t *testing.T) {
	var h Histogram
	if h.Total() != 0 || h.Percentile(0.5) != 0 || h.Curve() != nil {
		t.Fatal("empty histogram should report zeros")
	}
	if summary := h.Summarize(); summary != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestHistogramCurveAccumulates(t *testing.T) {
	curve := Histogram{5: 1, 1: 1, 3: 2}.Curve()
	if len(curve) != 3 || curve[0].Value != 1 || curve[2].Value != 5 {
		t.Fatalf("expected ascending buckets, got %+v", curve)
	}
	if curve[1].Fraction != 0.5 || curve[1].Cumulative != 0.75 || curve[2].Cumulative != 1 {
		t.Fatalf("unexpected curve %+v", curve)
	}
}
