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

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/consensus/poa"
	"github.com/sunyihoo/go-txcore/core/chaindb"
	"github.com/sunyihoo/go-txcore/core/executor"
	"github.com/sunyihoo/go-txcore/core/importer"
	"github.com/sunyihoo/go-txcore/core/rawdb"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/crypto"
	"github.com/sunyihoo/go-txcore/internal/shutdowncheck"
	"github.com/sunyihoo/go-txcore/log"
	"github.com/sunyihoo/go-txcore/p2p"
	"github.com/sunyihoo/go-txcore/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var (
	errDatadirUsed   = errors.New("datadir already used by another process")
	errMissingKey    = errors.New("block production requires an authority key")
	errNotStarted    = errors.New("service did not start")
	errNoGenesisAuth = errors.New("genesis has no authority")
)

// node is a running txpoold instance. It owns the chain database and every
// service working on it.
type node struct {
	config txpooldConfig
	log    log.Logger

	dirLock  *flock.Flock
	db       *chaindb.Database
	executor *executor.Executor
	importer *importer.Importer
	server   *p2p.Server
	pool     *service.Runner[*txpool.SharedState]
	producer *service.Runner[*poa.Producer] // nil unless producing

	shutdownTracker *shutdowncheck.ShutdownTracker
	tracking        bool

	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
	httpSrv  *http.Server
	group    *errgroup.Group
}

// makeNode assembles a node from the configuration. Metrics are registered
// with reg, or with the default prometheus registry if metrics are enabled
// and reg is nil.
func makeNode(cfg txpooldConfig, reg *prometheus.Registry) (_ *node, err error) {
	n := &node{
		config: cfg,
		log:    log.New("client", clientIdentifier),
	}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()
	switch {
	case reg != nil:
		n.reg, n.gatherer = reg, reg
	case cfg.Node.Metrics:
		n.reg, n.gatherer = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	// Keep two processes from opening the same data directory.
	if cfg.Node.DataDir != "" {
		if err := os.MkdirAll(cfg.Node.DataDir, 0700); err != nil {
			return nil, err
		}
		n.dirLock = flock.New(cfg.Node.LockFile())
		locked, err := n.dirLock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			n.dirLock = nil
			return nil, errDatadirUsed
		}
	}
	// Load the authority key before touching the database.
	var key *secp256k1.PrivateKey
	if cfg.Node.AuthorityKey != "" {
		if key, err = crypto.LoadKey(cfg.Node.ResolvePath(cfg.Node.AuthorityKey)); err != nil {
			return nil, fmt.Errorf("failed to load authority key: %w", err)
		}
	}
	if cfg.Node.Produce && key == nil {
		return nil, errMissingKey
	}
	genesis := cfg.Genesis
	if genesis.Authority == (common.Address{}) {
		if key == nil {
			return nil, errNoGenesisAuth
		}
		genesis.Authority = crypto.PubkeyToAddress(key.PubKey())
	}
	// Open the chain.
	half := cfg.Node.DatabaseCache / 2
	kv, err := rawdb.Open(rawdb.OpenOptions{
		Type:      cfg.Node.DBEngine,
		Directory: cfg.Node.ChainDataDir(),
		Cache:     half,
		Handles:   cfg.Node.DatabaseHandles,
	})
	if err != nil {
		return nil, err
	}
	n.db = chaindb.New(kv, half*1024*1024)
	n.shutdownTracker = shutdowncheck.NewShutdownTracker(kv)
	n.shutdownTracker.MarkStartup()
	n.executor = executor.New(n.db, cfg.Producer.BlockGasLimit)

	verifier := poa.NewVerifier(genesis.Authority)
	if n.importer, err = importer.New(n.db, n.executor, verifier, n.reg); err != nil {
		return nil, err
	}
	id, err := poa.SetupGenesisBlock(n.db, n.executor, n.importer, &genesis)
	if err != nil {
		return nil, err
	}
	n.log.Info("Initialised chain", "genesis", id, "authority", genesis.Authority)

	// Networking.
	p2pConfig := cfg.P2P
	if file := cfg.Node.NodeKeyFile(); file != "" {
		if p2pConfig.PrivateKey, err = p2p.LoadOrCreateNodeKey(file); err != nil {
			return nil, err
		}
	}
	if n.server, err = p2p.NewServer(p2pConfig, n.reg); err != nil {
		return nil, err
	}
	// Services.
	if n.pool, err = txpool.NewService(cfg.TxPool, n.db, n.importer, n.server, n.reg); err != nil {
		return nil, err
	}
	if cfg.Node.Produce {
		producer := poa.NewProducer(cfg.Producer, key, n.db, n.pool.Shared(), n.executor, n.importer, nil)
		if producer.Signer() != genesis.Authority {
			return nil, fmt.Errorf("authority key %s is not the chain authority %s", producer.Signer(), genesis.Authority)
		}
		n.producer = poa.NewService(producer)
	}
	return n, nil
}

// TxPool returns the shared state of the pool service.
func (n *node) TxPool() *txpool.SharedState {
	return n.pool.Shared()
}

// Start launches networking, the metrics endpoint and every service.
func (n *node) Start(ctx context.Context) error {
	if err := n.server.Start(); err != nil {
		return err
	}

	runners := []interface {
		StartAndAwait(context.Context) (service.State, error)
	}{n.pool}
	if n.producer != nil {
		runners = append(runners, n.producer)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		r := r
		g.Go(func() error {
			state, err := r.StartAndAwait(gctx)
			if err != nil {
				return err
			}
			if state != service.Started {
				return errNotStarted
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n.config.Node.Metrics && n.gatherer != nil {
		if err := n.startMetrics(); err != nil {
			return err
		}
	}
	n.shutdownTracker.Start()
	n.tracking = true
	return nil
}

func (n *node) startMetrics() error {
	listener, err := net.Listen("tcp", n.config.Node.MetricsAddr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics/prometheus", promhttp.HandlerFor(n.gatherer, promhttp.HandlerOpts{}))
	n.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	n.group = new(errgroup.Group)
	n.group.Go(func() error {
		if err := n.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	n.log.Info("Starting metrics server", "addr", fmt.Sprintf("http://%s/debug/metrics/prometheus", listener.Addr()))
	return nil
}

// Shutdown stops every service, waiting at most until ctx is done, and
// releases the node's resources.
func (n *node) Shutdown(ctx context.Context) error {
	var errs []error
	if n.producer != nil {
		if _, err := n.producer.StopAndAwait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := n.pool.StopAndAwait(ctx); err != nil {
		errs = append(errs, err)
	}
	if n.httpSrv != nil {
		if err := n.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := n.group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	if n.tracking {
		n.shutdownTracker.Stop()
		n.tracking = false
	}
	errs = append(errs, n.Close())
	return errors.Join(errs...)
}

// Close releases the network, the database and the data directory lock.
// It is safe to call on a partially constructed node.
func (n *node) Close() error {
	var errs []error
	if n.importer != nil {
		n.importer.Stop()
	}
	if n.server != nil {
		n.server.Stop()
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			errs = append(errs, err)
		}
		n.db = nil
	}
	if n.dirLock != nil {
		if err := n.dirLock.Unlock(); err != nil {
			errs = append(errs, err)
		}
		n.dirLock = nil
	}
	return errors.Join(errs...)
}
