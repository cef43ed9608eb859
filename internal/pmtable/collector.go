// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var valueDesc = prometheus.NewDesc(
	"zensmu_pm_table_value",
	"PM table word decoded as float32",
	[]string{"bank", "offset"},
	nil,
)

var versionDesc = prometheus.NewDesc(
	"zensmu_pm_table_version",
	"PM table version code",
	[]string{"platform"},
	nil,
)

// Collector exports a mapped table to prometheus. Each scrape refreshes the table
// first when a pipeline is set.
type Collector struct {
	mu       sync.Mutex
	view     *View
	pipeline *Pipeline
}

// NewCollector returns a collector for v. pipeline may be nil.
func NewCollector(v *View, pipeline *Pipeline) *Collector {
	return &Collector{view: v, pipeline: pipeline}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- valueDesc
	ch <- versionDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline != nil {
		if err := c.pipeline.Refresh(c.view.Table); err != nil {
			slog.Error("failed to refresh pm table", slog.String("error", err.Error()))
			ch <- prometheus.NewInvalidMetric(valueDesc, err)
			return
		}
	}
	ch <- prometheus.MustNewConstMetric(versionDesc, prometheus.GaugeValue, float64(c.view.Table.Version), c.view.Table.Platform.String())
	emit(ch, "primary", c.view.Values())
	emit(ch, "secondary", c.view.SecondaryValues())
}

func emit(ch chan<- prometheus.Metric, bank string, vals []float32) {
	for i, v := range vals {
		if math.IsNaN(float64(v)) {
			continue
		}
		ch <- prometheus.MustNewConstMetric(valueDesc, prometheus.GaugeValue, float64(v), bank, offset(i))
	}
}

func offset(i int) string {
	return fmt.Sprintf("0x%x", i*4)
}
