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

package p2p

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	peers     prometheus.Gauge   // connected peers
	received  prometheus.Counter // transactions delivered to subscribers
	rejected  prometheus.Counter // messages failing validation
	throttled prometheus.Counter // messages dropped by the peer rate limit
	published prometheus.Counter // transactions broadcast by this node
}

// newMetrics creates the gossip metrics and registers them with reg, if any.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "p2p",
			Name:      "peers",
			Help:      "Number of connected peers.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p2p",
			Name:      "gossip_received_total",
			Help:      "Transactions received from peers.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p2p",
			Name:      "gossip_rejected_total",
			Help:      "Gossip messages that failed validation.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p2p",
			Name:      "gossip_throttled_total",
			Help:      "Gossip messages ignored because the peer exceeded its rate.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p2p",
			Name:      "gossip_published_total",
			Help:      "Transactions broadcast to peers.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.peers, m.received, m.rejected, m.throttled, m.published} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
