// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
)

var (
	cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uwdt",
		Subsystem: "sim",
		Name:      "cycles_total",
		Help:      "Number of clock cycles the simulated watchdog has been ticked",
	})
	tapsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uwdt",
		Subsystem: "sim",
		Name:      "taps_total",
		Help:      "Writes to the tap register, by whether the magic value was presented",
	}, []string{"result"})
	expiriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uwdt",
		Subsystem: "sim",
		Name:      "expiries_total",
		Help:      "Number of times the countdown reached zero and latched the interrupt",
	})
	resetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uwdt",
		Subsystem: "sim",
		Name:      "resets_total",
		Help:      "Number of hard resets of the simulated watchdog",
	})
	interruptAsserted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "uwdt",
		Subsystem: "sim",
		Name:      "interrupt_asserted",
		Help:      "Whether the watchdog interrupt line was asserted at the last access",
	})
)

func init() {
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(tapsTotal)
	prometheus.MustRegister(expiriesTotal)
	prometheus.MustRegister(resetsTotal)
	prometheus.MustRegister(interruptAsserted)
}

func countEvent(e wdt.Event) {
	switch e.Kind {
	case wdt.EventTap:
		tapsTotal.WithLabelValues("valid").Inc()
	case wdt.EventTapIgnored:
		tapsTotal.WithLabelValues("invalid").Inc()
	case wdt.EventExpire:
		expiriesTotal.Inc()
	case wdt.EventReset:
		resetsTotal.Inc()
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
