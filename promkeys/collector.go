// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package promkeys exports static key table counters and key states as
// Prometheus metrics.
//
//	c := promkeys.NewCollector(table, map[string]*statickey.Key{
//	    "tracing": &tracing,
//	})
//	prometheus.MustRegister(c)
package promkeys

import (
	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/statickey"
)

const namespace = "statickey"

var (
	togglesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "toggles_total"),
		"Enable or Disable calls that rewrote branch sites.",
		nil, nil)
	redundantDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "redundant_toggles_total"),
		"Enable or Disable calls that matched the current key state.",
		nil, nil)
	patchedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "patched_sites_total"),
		"Branch sites rewritten.",
		nil, nil)
	sitesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "sites"),
		"Resolved branch sites in the table.",
		nil, nil)
	keysDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "keys"),
		"Keys owning at least one branch site.",
		nil, nil)
	enabledDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "enabled"),
		"Current key state, 1 when enabled.",
		[]string{"key"}, nil)
)

// Collector is a prometheus.Collector over one table and a set of named
// keys. Values are read at scrape time; nothing is cached.
type Collector struct {
	table *statickey.Table
	keys  map[string]*statickey.Key
}

// NewCollector returns a collector for t. keys names the keys whose state
// is exported as statickey_enabled; it may be nil. The map is copied.
func NewCollector(t *statickey.Table, keys map[string]*statickey.Key) *Collector {
	c := &Collector{table: t, keys: make(map[string]*statickey.Key, len(keys))}
	for name, k := range keys {
		c.keys[name] = k
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- togglesDesc
	ch <- redundantDesc
	ch <- patchedDesc
	ch <- sitesDesc
	ch <- keysDesc
	ch <- enabledDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.table.Stats()
	ch <- prometheus.MustNewConstMetric(togglesDesc, prometheus.CounterValue, float64(s.Toggles))
	ch <- prometheus.MustNewConstMetric(redundantDesc, prometheus.CounterValue, float64(s.Redundant))
	ch <- prometheus.MustNewConstMetric(patchedDesc, prometheus.CounterValue, float64(s.Patched))
	ch <- prometheus.MustNewConstMetric(sitesDesc, prometheus.GaugeValue, float64(s.Sites))
	ch <- prometheus.MustNewConstMetric(keysDesc, prometheus.GaugeValue, float64(s.Keys))

	for name, k := range c.keys {
		v := 0.0
		if k.Enabled() {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(enabledDesc, prometheus.GaugeValue, v, name)
	}
}
