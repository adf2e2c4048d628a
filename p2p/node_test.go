package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valency/foxcoin/utils"
)

type testProtocol struct{}

func (testProtocol) Name() string { return "test" }

func newTestNode(t *testing.T, genesis string, maxPeers int) (*Node, ProtocolRunner) {
	t.Helper()
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	n, err := NewNode(&Config{
		ListenIP:    "127.0.0.1",
		ListenPort:  0,
		MaxPeerNum:  maxPeers,
		PrivKey:     key,
		GenesisHash: genesis,
	})
	require.NoError(t, err)
	runner := n.AddProtocol(testProtocol{})
	require.NoError(t, n.Start())
	return n, runner
}

func waitEvent(t *testing.T, r ProtocolRunner) *PeerEvent {
	t.Helper()
	select {
	case ev := <-r.GetEventChan():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no peer event")
	}
	return nil
}

func waitData(t *testing.T, r ProtocolRunner) *PeerData {
	t.Helper()
	select {
	case dp := <-r.GetRecvChan():
		return dp
	case <-time.After(5 * time.Second):
		t.Fatal("no peer data")
	}
	return nil
}

func TestNewNodeConfig(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	_, err = NewNode(&Config{ListenIP: "x", MaxPeerNum: 1, PrivKey: key})
	assert.Error(t, err)
	_, err = NewNode(&Config{ListenIP: "127.0.0.1", MaxPeerNum: 0, PrivKey: key})
	assert.Error(t, err)
	_, err = NewNode(&Config{ListenIP: "127.0.0.1", MaxPeerNum: 1})
	assert.Error(t, err)
}

func TestNodeExchange(t *testing.T) {
	defer leaktest.Check(t)()

	a, ra := newTestNode(t, testGenesis, 4)
	defer a.Stop()
	b, rb := newTestNode(t, testGenesis, 4)
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, b.Addr().String()))

	evA := waitEvent(t, ra)
	evB := waitEvent(t, rb)
	assert.True(t, evA.Connected)
	assert.True(t, evB.Connected)
	assert.Equal(t, b.NodeID(), evA.Peer.NodeID)
	assert.Equal(t, a.NodeID(), evB.Peer.NodeID)
	assert.True(t, evB.Peer.Inbound)
	assert.Equal(t, a.Addr().String(), evB.Peer.ListenAddr)
	assert.Equal(t, []string{b.Addr().String()}, a.Peers())
	assert.Len(t, b.Peers(), 1)

	// broadcast from a, unicast answer from b
	require.NoError(t, ra.Send(&PeerData{Data: []byte(`{"type":0}`)}))
	dp := waitData(t, rb)
	assert.Equal(t, evB.Peer.ConnID, dp.Peer)
	assert.Equal(t, []byte(`{"type":0}`), dp.Data)

	require.NoError(t, rb.Send(&PeerData{Peer: dp.Peer, Data: []byte(`{"type":1}`)}))
	dp = waitData(t, ra)
	assert.Equal(t, evA.Peer.ConnID, dp.Peer)
	assert.Equal(t, []byte(`{"type":1}`), dp.Data)

	// a second connection to the same node is refused
	err := a.Connect(ctx, b.Addr().String())
	assert.ErrorIs(t, err, ErrNegotiateDuplicate)

	a.Stop()
	ev := waitEvent(t, rb)
	assert.False(t, ev.Connected)
	assert.Empty(t, b.Peers())
	assert.ErrorIs(t, ra.Send(&PeerData{Data: []byte("x")}), ErrNoPeers)
	assert.ErrorIs(t, a.Connect(ctx, b.Addr().String()), ErrNodeStopped)
}

func TestNodeRefuse(t *testing.T) {
	defer leaktest.Check(t)()

	a, _ := newTestNode(t, testGenesis, 4)
	defer a.Stop()
	other, _ := newTestNode(t, "another genesis", 4)
	defer other.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.Connect(ctx, other.Addr().String())
	assert.ErrorIs(t, err, ErrNegotiateConnectionRefused)
	assert.ErrorIs(t, a.Connect(ctx, other.Addr().String()), ErrBlacklisted)

	assert.ErrorIs(t, a.Connect(ctx, a.Addr().String()), ErrNegotiateConnectionRefused)
	assert.Error(t, a.Connect(ctx, "not an address"))
	assert.Empty(t, a.Peers())
}

func TestNodeMaxPeers(t *testing.T) {
	defer leaktest.Check(t)()

	server, rs := newTestNode(t, testGenesis, 1)
	defer server.Stop()
	a, _ := newTestNode(t, testGenesis, 4)
	defer a.Stop()
	b, _ := newTestNode(t, testGenesis, 4)
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Connect(ctx, server.Addr().String()))
	waitEvent(t, rs)

	assert.ErrorIs(t, b.Connect(ctx, server.Addr().String()), ErrNegotiateTooManyPeers)
	assert.ErrorIs(t, server.Connect(ctx, b.Addr().String()), ErrNegotiateTooManyPeers)
	assert.Len(t, server.Peers(), 1)

	// a full node is not blacklisted, b gets in once a slot is free
	a.Stop()
	assert.False(t, waitEvent(t, rs).Connected)
	require.NoError(t, b.Connect(ctx, server.Addr().String()))
	assert.Len(t, server.Peers(), 1)
}

func dropLinks(n *Node) {
	n.conns.mutex.RLock()
	conns := make([]*conn, 0, len(n.conns.conns))
	for _, c := range n.conns.conns {
		conns = append(conns, c)
	}
	n.conns.mutex.RUnlock()

	for _, c := range conns {
		c.stop()
	}
}

func TestNodeReconnectAfterDuplicate(t *testing.T) {
	defer leaktest.Check(t)()

	a, ra := newTestNode(t, testGenesis, 4)
	defer a.Stop()
	b, rb := newTestNode(t, testGenesis, 4)
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Connect(ctx, b.Addr().String()))
	waitEvent(t, ra)
	waitEvent(t, rb)

	// both sides list each other, the second dial is a duplicate
	assert.ErrorIs(t, b.Connect(ctx, a.Addr().String()), ErrNegotiateDuplicate)
	target, err := utils.PeerURL(a.Addr().String())
	require.NoError(t, err)
	assert.False(t, b.ngBlackList.Has(target))

	dropLinks(a)
	assert.False(t, waitEvent(t, ra).Connected)
	assert.False(t, waitEvent(t, rb).Connected)

	require.NoError(t, b.Connect(ctx, a.Addr().String()))
	assert.True(t, waitEvent(t, ra).Connected)
	assert.True(t, waitEvent(t, rb).Connected)
	assert.Equal(t, []string{a.Addr().String()}, b.Peers())
}
