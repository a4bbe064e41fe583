package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"text/tabwriter"
	"time"
)

// phaseStats summarizes one load-test phase.
type phaseStats struct {
	name          string
	ops           int
	failures      int64
	elapsed       time.Duration
	p50, p95, p99 time.Duration
}

func summarize(name string, elapsed time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	return phaseStats{
		name:     name,
		ops:      len(samples),
		failures: failures,
		elapsed:  elapsed,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
}

func (s phaseStats) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.ops) / s.elapsed.Seconds()
}

// percentile uses the nearest-rank method over samples sorted ascending.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) / 100 * float64(len(samples))))
	rank = min(max(rank, 1), len(samples))
	return samples[rank-1]
}

func writeStats(w io.Writer, phases ...phaseStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "phase\tops\tfailures\telapsed\tops/sec\tp50\tp95\tp99")
	for _, s := range phases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\n",
			s.name,
			s.ops,
			s.failures,
			s.elapsed.Round(time.Millisecond),
			s.throughput(),
			s.p50.Round(time.Microsecond),
			s.p95.Round(time.Microsecond),
			s.p99.Round(time.Microsecond),
		)
	}
	return tw.Flush()
}
