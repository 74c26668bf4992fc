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

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-txcore/common"
	"github.com/sunyihoo/go-txcore/core/txpool"
	"github.com/sunyihoo/go-txcore/core/types"
)

func startServer(t *testing.T, reg prometheus.Registerer) *Server {
	config := DefaultConfig
	config.ListenAddrs = []string{"/ip4/127.0.0.1/tcp/0"}
	srv, err := NewServer(config, reg)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func testTx(amount uint64) *types.Transaction {
	owner := common.HexToAddress("0xa11ce")
	return types.NewTx(&types.TxData{
		GasPrice: uint256.NewInt(1),
		Gas:      21000,
		Inputs:   []types.Input{{UtxoID: types.UtxoID{TxID: common.HexToHash("0x01")}, Owner: owner, Amount: amount}},
		Outputs:  []types.Output{{Owner: owner, Amount: amount}},
	})
}

func TestGossipTransaction(t *testing.T) {
	var (
		reg = prometheus.NewRegistry()
		a   = startServer(t, nil)
		b   = startServer(t, reg)
	)
	chA, chB := make(chan *txpool.GossipData, 1), make(chan *txpool.GossipData, 1)
	subA, subB := a.SubscribeTransactions(chA), b.SubscribeTransactions(chB)
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	require.NoError(t, b.AddPeer(context.Background(), a.NodeAddrs()[0]))
	require.Eventually(t, func() bool {
		return a.TopicPeers() > 0 && b.TopicPeers() > 0
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, 1, a.PeerCount())

	tx := testTx(7)
	require.NoError(t, a.BroadcastTransaction(tx))

	select {
	case data := <-chB:
		require.NotNil(t, data.Tx)
		assert.Equal(t, tx.ID(), data.Tx.ID())
		assert.Equal(t, a.Self().String(), data.PeerID)
	case <-time.After(10 * time.Second):
		t.Fatal("transaction not delivered")
	}
	// The publisher does not hear its own message.
	select {
	case data := <-chA:
		t.Fatalf("self-published transaction delivered: %v", data.Tx.ID())
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(b.metrics.received))
}

func TestValidatorRejectsGarbage(t *testing.T) {
	srv := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, srv.topic.Publish(ctx, []byte{0xde, 0xad}))
	assert.Error(t, srv.topic.Publish(ctx, nil))
	assert.Equal(t, float64(2), testutil.ToFloat64(srv.metrics.rejected))
}

func TestStoppedServer(t *testing.T) {
	srv, err := NewServer(DefaultConfig, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, srv.BroadcastTransaction(testTx(1)), errServerStopped)
	assert.Nil(t, srv.NodeAddrs())

	srv.ListenAddrs = nil
	require.NoError(t, srv.Start())
	ch := make(chan *txpool.GossipData)
	sub := srv.SubscribeTransactions(ch)
	srv.Stop()

	select {
	case <-sub.Err():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on stop")
	}
	assert.ErrorIs(t, srv.BroadcastTransaction(testTx(1)), errServerStopped)
	srv.Stop()
}

func TestNodeKey(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nodekey")

	key, err := LoadOrCreateNodeKey(file)
	require.NoError(t, err)
	again, err := LoadOrCreateNodeKey(file)
	require.NoError(t, err)
	assert.True(t, key.Equals(again))

	_, err = LoadNodeKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPeerRateLimit(t *testing.T) {
	config := DefaultConfig
	config.PeerRate = 1
	config.PeerBurst = 2
	srv, err := NewServer(config, nil)
	require.NoError(t, err)

	a, b := peer.ID("peer-a"), peer.ID("peer-b")
	assert.True(t, srv.allow(a))
	assert.True(t, srv.allow(a))
	assert.False(t, srv.allow(a), "burst exhausted")
	assert.True(t, srv.allow(b), "limits are per peer")

	srv.PeerRate = 0
	assert.True(t, srv.allow(a), "zero rate disables the limit")
}
