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

package importer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	height         prometheus.Gauge
	commits        prometheus.Counter
	commitFailures prometheus.Counter
}

// newMetrics creates the importer metrics and registers them with reg. A nil
// registerer leaves them unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "importer",
			Name:      "height",
			Help:      "Height of the latest committed block.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "importer",
			Name:      "commits_total",
			Help:      "Number of committed blocks.",
		}),
		commitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "importer",
			Name:      "commit_failures_total",
			Help:      "Number of block commits that were discarded.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.height, m.commits, m.commitFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
