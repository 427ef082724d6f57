package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goSession.MetricID]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate counter def for %s", def.ID)
		}
		seen[def.ID] = true
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		if want := "gosession_" + def.ID.String() + "_total"; def.Name != want {
			t.Fatalf("counter %s: expected name %q, got %q", def.ID, want, def.Name)
		}
	}
	for id := goSession.MetricLoginSuccess; id < goSession.MetricFetchLatency; id++ {
		if !seen[id] {
			t.Fatalf("missing counter def for %s", id)
		}
	}
}

func TestBucketBoundsAgree(t *testing.T) {
	upper := BucketUpperBounds()
	if len(upper)+1 != len(HistogramBounds) || len(HistogramBounds) != len(HistogramBoundSuffix) {
		t.Fatalf("bound tables disagree: %d finite, %d labels, %d suffixes", len(upper), len(HistogramBounds), len(HistogramBoundSuffix))
	}
	if upper[0] != 0.005 || upper[len(upper)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", upper)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
