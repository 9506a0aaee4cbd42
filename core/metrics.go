package core

import (
	"context"
	"sync"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// CountingMetricsRecorder keeps counter totals in memory, keyed by metric
// name. The CLI uses it to print a run summary.
type CountingMetricsRecorder struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewCountingMetricsRecorder() *CountingMetricsRecorder {
	return &CountingMetricsRecorder{counters: map[string]int64{}}
}

func (r *CountingMetricsRecorder) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += value
}

func (r *CountingMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {
}

func (r *CountingMetricsRecorder) Counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = (*CountingMetricsRecorder)(nil)
)
