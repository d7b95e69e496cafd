/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package status exposes the running topology's counters (spec §4.11
// "list-all (dumps listeners, services, back-ends, sessions as a
// serialised snapshot)") as Prometheus metrics, a read-only companion
// to the control server's binary snapshot wire format aimed at
// operators already scraping /metrics rather than speaking the
// control protocol.
package status

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhill/pound/control"
	"github.com/jhill/pound/service"
)

var (
	listenerDisabledDesc = prometheus.NewDesc(
		"pound_listener_disabled",
		"1 if the listener is administratively disabled, else 0.",
		[]string{"listener"}, nil,
	)
	serviceDisabledDesc = prometheus.NewDesc(
		"pound_service_disabled",
		"1 if the service is administratively disabled, else 0.",
		[]string{"listener", "service"}, nil,
	)
	serviceTotalPriorityDesc = prometheus.NewDesc(
		"pound_service_total_priority",
		"Sum of priority over this service's alive, enabled back-ends (tot_pri).",
		[]string{"listener", "service"}, nil,
	)
	serviceRequestsDesc = prometheus.NewDesc(
		"pound_service_requests_total",
		"Requests routed through this service since start.",
		[]string{"listener", "service"}, nil,
	)
	serviceSessionsDesc = prometheus.NewDesc(
		"pound_service_sessions",
		"Live entries in this service's session table.",
		[]string{"listener", "service"}, nil,
	)
	backendAliveDesc = prometheus.NewDesc(
		"pound_backend_alive",
		"1 if the back-end is currently considered alive, else 0.",
		[]string{"listener", "service", "backend"}, nil,
	)
	backendDisabledDesc = prometheus.NewDesc(
		"pound_backend_disabled",
		"1 if the back-end is administratively disabled, else 0.",
		[]string{"listener", "service", "backend"}, nil,
	)
	backendPriorityDesc = prometheus.NewDesc(
		"pound_backend_priority",
		"Configured priority weight of the back-end.",
		[]string{"listener", "service", "backend"}, nil,
	)
	backendRequestsDesc = prometheus.NewDesc(
		"pound_backend_requests_total",
		"Requests routed to this back-end since start.",
		[]string{"listener", "service", "backend"}, nil,
	)
	backendLatencyDesc = prometheus.NewDesc(
		"pound_backend_average_latency_seconds",
		"Running average response latency observed for this back-end.",
		[]string{"listener", "service", "backend"}, nil,
	)
	backendResponsesDesc = prometheus.NewDesc(
		"pound_backend_responses_total",
		"Responses observed for this back-end, by status class.",
		[]string{"listener", "service", "backend", "class"}, nil,
	)
)

// Collector adapts a control.Registry's live topology to the
// prometheus.Collector interface (the standard ad-hoc-collector shape
// every client_golang exporter implements — Describe emits the
// metrics' static Desc set, Collect walks live state on every scrape).
type Collector struct {
	reg *control.Registry
}

// New wraps reg for Prometheus registration.
func New(reg *control.Registry) *Collector {
	return &Collector{reg: reg}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- listenerDisabledDesc
	ch <- serviceDisabledDesc
	ch <- serviceTotalPriorityDesc
	ch <- serviceRequestsDesc
	ch <- serviceSessionsDesc
	ch <- backendAliveDesc
	ch <- backendDisabledDesc
	ch <- backendPriorityDesc
	ch <- backendRequestsDesc
	ch <- backendLatencyDesc
	ch <- backendResponsesDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, l := range c.reg.Listeners() {
		ch <- mustGauge(listenerDisabledDesc, boolValue(l.Disabled()), l.Name)
		for _, s := range l.Services() {
			c.collectService(ch, l.Name, s)
		}
	}
	for _, s := range c.reg.GlobalServices() {
		c.collectService(ch, "", s)
	}
}

func (c *Collector) collectService(ch chan<- prometheus.Metric, listenerName string, s *service.Service) {
	ch <- mustGauge(serviceDisabledDesc, boolValue(s.Disabled()), listenerName, s.Name)
	ch <- mustGauge(serviceTotalPriorityDesc, float64(s.TotPri()), listenerName, s.Name)
	ch <- mustCounter(serviceRequestsDesc, float64(s.NRequests()), listenerName, s.Name)
	ch <- mustGauge(serviceSessionsDesc, float64(s.Sessions().Len()), listenerName, s.Name)

	for _, b := range s.BackEnds() {
		snap := b.Snapshot()
		ch <- mustGauge(backendAliveDesc, boolValue(snap.Alive), listenerName, s.Name, b.BEKey)
		ch <- mustGauge(backendDisabledDesc, boolValue(snap.Disabled), listenerName, s.Name, b.BEKey)
		ch <- mustGauge(backendPriorityDesc, float64(b.Priority), listenerName, s.Name, b.BEKey)
		ch <- mustCounter(backendRequestsDesc, float64(snap.NRequests), listenerName, s.Name, b.BEKey)
		ch <- mustGauge(backendLatencyDesc, snap.TAverage, listenerName, s.Name, b.BEKey)
		ch <- mustCounter(backendResponsesDesc, float64(snap.C1xx), listenerName, s.Name, b.BEKey, "1xx")
		ch <- mustCounter(backendResponsesDesc, float64(snap.C2xx), listenerName, s.Name, b.BEKey, "2xx")
		ch <- mustCounter(backendResponsesDesc, float64(snap.C3xx), listenerName, s.Name, b.BEKey, "3xx")
		ch <- mustCounter(backendResponsesDesc, float64(snap.C4xx), listenerName, s.Name, b.BEKey, "4xx")
		ch <- mustCounter(backendResponsesDesc, float64(snap.C5xx), listenerName, s.Name, b.BEKey, "5xx")
	}
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func mustGauge(desc *prometheus.Desc, value float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labels...)
}

func mustCounter(desc *prometheus.Desc, value float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(desc, prometheus.CounterValue, value, labels...)
}
