package tracers

import (
	"sort"

	"github.com/hashicorp/go-metrics"
)

// CounterTotal is one counter summed over every interval kept by a sink.
type CounterTotal struct {
	Key    string
	Name   string
	Labels []metrics.Label
	Sum    float64
	Count  int
}

// CounterTotals sums the counters of an in-memory sink, sorted by key.
func CounterTotals(sink *metrics.InmemSink) []CounterTotal {
	byKey := make(map[string]*CounterTotal)

	for _, interval := range sink.Data() {
		for key, v := range interval.Counters {
			t, found := byKey[key]
			if !found {
				t = &CounterTotal{Key: key, Name: v.Name, Labels: v.Labels}
				byKey[key] = t
			}

			if v.AggregateSample != nil {
				t.Sum += v.Sum
				t.Count += v.AggregateSample.Count
			}
		}
	}

	totals := make([]CounterTotal, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}

	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Key < totals[j].Key
	})

	return totals
}
