package internaldefs

import (
	"strings"
	"testing"

	campusAuth "github.com/MrEthical07/campusAuth"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[campusAuth.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "campusauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	m := campusAuth.NewMetrics(campusAuth.MetricsConfig{Enabled: true})
	for id := range m.Snapshot().Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestBucketShapes(t *testing.T) {
	if len(HistogramUpperBounds)+1 != campusAuth.HistogramBucketCount {
		t.Fatalf("bounds %d do not match bucket count %d", len(HistogramUpperBounds), campusAuth.HistogramBucketCount)
	}
	if got := BucketLabel(0); got != "0.005" {
		t.Fatalf("BucketLabel(0) = %q", got)
	}
	if got := BucketLabel(campusAuth.HistogramBucketCount - 1); got != "+Inf" {
		t.Fatalf("overflow label = %q", got)
	}

	cum := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [campusAuth.HistogramBucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if cum != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", cum, want)
	}
}
