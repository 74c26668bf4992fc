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

// Package p2p gossips pool transactions between nodes over libp2p pubsub.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/core/types"
	"github.com/sunyihoo/go-txcore/event"
	"github.com/sunyihoo/go-txcore/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultDialTimeout = 15 * time.Second

	// Maximum amount of time allowed for publishing a transaction.
	publishTimeout = 5 * time.Second

	// Number of peers whose rate limiters are remembered.
	limiterCacheSize = 1024
)

var (
	errServerStopped = errors.New("server stopped")
	errEmptyMessage  = errors.New("empty message")
)

// Server gossips transactions on a single pubsub topic. It implements
// txpool.PeerToPeer.
type Server struct {
	Config

	lock    sync.Mutex // protects running
	running bool

	host    host.Host
	self    peer.ID
	ps      *pubsub.PubSub
	topic   *pubsub.Topic
	sub     *pubsub.Subscription
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	metrics *metrics
	log     log.Logger

	limiters *lru.Cache[peer.ID, *rate.Limiter]
	dials    singleflight.Group // coalesces concurrent dials of the same address

	txFeed event.FeedOf[*txpool.GossipData]
	scope  event.SubscriptionScope
}

var _ txpool.PeerToPeer = (*Server)(nil)

// NewServer creates a gossip server. The metrics are registered with reg, if any.
func NewServer(config Config, reg prometheus.Registerer) (*Server, error) {
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	limiters, err := lru.New[peer.ID, *rate.Limiter](limiterCacheSize)
	if err != nil {
		return nil, err
	}
	return &Server{Config: config, metrics: m, limiters: limiters, log: log.New("topic", config.Topic)}, nil
}

// Start starts running the server.
func (srv *Server) Start() (err error) {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if srv.running {
		return errors.New("server already running")
	}
	if srv.PrivateKey == nil {
		if srv.PrivateKey, err = GenerateNodeKey(); err != nil {
			return err
		}
	}
	opts := []libp2p.Option{libp2p.Identity(srv.PrivateKey)}
	if len(srv.ListenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(srv.ListenAddrs...))
	} else {
		opts = append(opts, libp2p.NoListenAddrs)
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv.self = h.ID()
	if err := srv.setupPubSub(ctx, h); err != nil {
		cancel()
		h.Close()
		return err
	}
	srv.host, srv.cancel = h, cancel
	srv.running = true

	h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(n network.Network, c network.Conn) {
			srv.log.Debug("Peer connected", "peer", c.RemotePeer())
			srv.metrics.peers.Set(float64(len(n.Peers())))
		},
		DisconnectedF: func(n network.Network, c network.Conn) {
			srv.log.Debug("Peer disconnected", "peer", c.RemotePeer())
			srv.metrics.peers.Set(float64(len(n.Peers())))
		},
	})
	for _, addr := range srv.BootstrapNodes {
		if err := srv.connect(ctx, addr); err != nil {
			srv.log.Warn("Failed to dial bootstrap node", "addr", addr, "err", err)
		}
	}
	srv.loopWG.Add(1)
	go srv.readLoop(ctx)

	srv.log.Info("Started P2P networking", "self", h.ID(), "addrs", h.Addrs())
	return nil
}

func (srv *Server) setupPubSub(ctx context.Context, h host.Host) error {
	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSigning(true),
		pubsub.WithMaxMessageSize(srv.MaxMessageSize),
	)
	if err != nil {
		return err
	}
	if err := ps.RegisterTopicValidator(srv.Topic, srv.validateTx); err != nil {
		return err
	}
	topic, err := ps.Join(srv.Topic)
	if err != nil {
		return fmt.Errorf("join topic %q: %w", srv.Topic, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		topic.Close()
		return fmt.Errorf("subscribe topic %q: %w", srv.Topic, err)
	}
	srv.ps, srv.topic, srv.sub = ps, topic, sub
	return nil
}

// Stop terminates the server and all active peer connections. Transaction
// subscriptions are closed.
func (srv *Server) Stop() {
	srv.lock.Lock()
	if !srv.running {
		srv.lock.Unlock()
		return
	}
	srv.running = false
	srv.sub.Cancel()
	srv.cancel()
	srv.lock.Unlock()

	srv.scope.Close()
	srv.loopWG.Wait()

	if err := srv.topic.Close(); err != nil {
		srv.log.Debug("Failed to close topic", "err", err)
	}
	if err := srv.host.Close(); err != nil {
		srv.log.Warn("Failed to close host", "err", err)
	}
	srv.log.Info("Stopped P2P networking")
}

// SubscribeTransactions implements txpool.PeerToPeer. Messages published by
// this node are not delivered.
func (srv *Server) SubscribeTransactions(ch chan<- *txpool.GossipData) event.Subscription {
	return srv.scope.Track(srv.txFeed.Subscribe(ch))
}

// BroadcastTransaction implements txpool.PeerToPeer.
func (srv *Server) BroadcastTransaction(tx *types.Transaction) error {
	srv.lock.Lock()
	running, topic := srv.running, srv.topic
	srv.lock.Unlock()
	if !running {
		return errServerStopped
	}
	data, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := topic.Publish(ctx, data); err != nil {
		return err
	}
	srv.metrics.published.Inc()
	return nil
}

// Self returns the peer id of the local host, empty if not running.
func (srv *Server) Self() peer.ID {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if !srv.running {
		return ""
	}
	return srv.host.ID()
}

// NodeAddrs returns the full /p2p/ multiaddrs other nodes can dial.
func (srv *Server) NodeAddrs() []string {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if !srv.running {
		return nil
	}
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: srv.host.ID(), Addrs: srv.host.Addrs()})
	if err != nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, addr := range addrs {
		out[i] = addr.String()
	}
	return out
}

// PeerCount returns the number of connected peers.
func (srv *Server) PeerCount() int {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if !srv.running {
		return 0
	}
	return len(srv.host.Network().Peers())
}

// TopicPeers returns the number of peers subscribed to the transaction topic.
func (srv *Server) TopicPeers() int {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if !srv.running {
		return 0
	}
	return len(srv.topic.ListPeers())
}

// AddPeer dials the node at the full /p2p/ multiaddr addr.
func (srv *Server) AddPeer(ctx context.Context, addr string) error {
	srv.lock.Lock()
	running := srv.running
	srv.lock.Unlock()
	if !running {
		return errServerStopped
	}
	return srv.connect(ctx, addr)
}

func (srv *Server) connect(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("peer address cannot be empty")
	}
	full, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(full)
	if err != nil {
		return err
	}
	_, err, shared := srv.dials.Do(full.String(), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
		return nil, srv.host.Connect(ctx, *info)
	})
	if shared {
		srv.log.Trace("Joined pending dial", "addr", addr)
	}
	return err
}

// allow reports whether another message from pid fits into its rate limit.
func (srv *Server) allow(pid peer.ID) bool {
	if srv.PeerRate <= 0 {
		return true
	}
	limiter, ok := srv.limiters.Get(pid)
	if !ok {
		burst := srv.PeerBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(srv.PeerRate), burst)
		srv.limiters.Add(pid, limiter)
	}
	return limiter.Allow()
}

// validateTx accepts messages that decode to a transaction. The decoded
// transaction is handed to the read loop in the message. Messages of peers
// exceeding their rate are ignored without penalty.
func (srv *Server) validateTx(ctx context.Context, pid peer.ID, msg *pubsub.Message) pubsub.ValidationResult {
	if pid != srv.self && !srv.allow(pid) {
		srv.metrics.throttled.Inc()
		return pubsub.ValidationIgnore
	}
	tx, err := decodeTx(msg.Data)
	if err != nil {
		srv.log.Debug("Rejected gossip message", "peer", pid, "err", err)
		srv.metrics.rejected.Inc()
		return pubsub.ValidationReject
	}
	msg.ValidatorData = tx
	return pubsub.ValidationAccept
}

func decodeTx(data []byte) (*types.Transaction, error) {
	if len(data) == 0 {
		return nil, errEmptyMessage
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return tx, nil
}

// readLoop delivers gossiped transactions to subscribers until the
// subscription is cancelled.
func (srv *Server) readLoop(ctx context.Context) {
	defer srv.loopWG.Done()

	self := srv.host.ID()
	for {
		msg, err := srv.sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, pubsub.ErrSubscriptionCancelled) {
				srv.log.Error("Gossip subscription failed", "err", err)
			}
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}
		tx, _ := msg.ValidatorData.(*types.Transaction)
		srv.metrics.received.Inc()
		srv.txFeed.Send(&txpool.GossipData{Tx: tx, PeerID: msg.ReceivedFrom.String()})
	}
}
