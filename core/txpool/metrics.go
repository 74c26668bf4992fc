// Copyright 2024 The go-txcore Authors
// This file is part of the go-txcore library.
//
// The go-txcore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-txcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-txcore library. If not, see <http://www.gnu.org/licenses/>.

package txpool

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	pending  prometheus.Gauge   // number of pending transactions
	gas      prometheus.Gauge   // consumable gas of pending transactions
	inserted prometheus.Counter // accepted transactions
	rejected prometheus.Counter // rejected transactions
	squeezed prometheus.Counter // evicted transactions
	selected prometheus.Counter // transactions handed out for block production
}

// newMetrics creates the pool metrics and registers them with reg. A nil
// registerer leaves them unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txpool",
			Name:      "pending",
			Help:      "Number of pending transactions.",
		}),
		gas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txpool",
			Name:      "gas",
			Help:      "Total gas of pending transactions.",
		}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txpool",
			Name:      "inserted_total",
			Help:      "Number of transactions accepted into the pool.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txpool",
			Name:      "rejected_total",
			Help:      "Number of transactions rejected by the pool.",
		}),
		squeezed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txpool",
			Name:      "squeezed_total",
			Help:      "Number of transactions evicted from the pool.",
		}),
		selected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txpool",
			Name:      "selected_total",
			Help:      "Number of transactions selected for block production.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.pending, m.gas, m.inserted, m.rejected, m.squeezed, m.selected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
