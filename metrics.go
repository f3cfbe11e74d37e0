// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus collectors that an IndexedBatch
// updates as it is mutated and collapsed. Construct one with NewMetrics and
// register it with a prometheus.Registerer; pass it via Options.Metrics.
// A nil *Metrics (the default) disables all instrumentation at zero cost.
type Metrics struct {
	IndexEntries    prometheus.Gauge
	ObsoleteRecords prometheus.Gauge
	RecordLogBytes  prometheus.Gauge
	CollapseCount   prometheus.Counter
}

// NewMetrics constructs a Metrics with the given label values, suitable for
// registration with a prometheus.Registerer.
func NewMetrics(labels prometheus.Labels) *Metrics {
	return &Metrics{
		IndexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "indexedbatch",
			Name:        "index_entries",
			Help:        "Number of live index entries in the batch.",
			ConstLabels: labels,
		}),
		ObsoleteRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "indexedbatch",
			Name:        "obsolete_records",
			Help:        "Number of obsolete (overwritten) records pending collapse.",
			ConstLabels: labels,
		}),
		RecordLogBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "indexedbatch",
			Name:        "record_log_bytes",
			Help:        "Size in bytes of the batch's record log.",
			ConstLabels: labels,
		}),
		CollapseCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "indexedbatch",
			Name:        "collapse_total",
			Help:        "Number of times collapse() has rewritten the record log.",
			ConstLabels: labels,
		}),
	}
}

// Collectors returns the set of collectors that should be registered with a
// prometheus.Registerer.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.IndexEntries, m.ObsoleteRecords, m.RecordLogBytes, m.CollapseCount}
}

// Snapshot is a plain-data copy of a Metrics' current readings, for callers
// that would rather not depend on prometheus client types directly.
type Snapshot struct {
	IndexEntries    int
	ObsoleteRecords int
	RecordLogBytes  int
}
