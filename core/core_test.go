package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/go-kit/kit/metrics/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/p2p"
	"github.com/valency/foxcoin/p2p/peer"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/serialize/cp"
)

var peerForTest = *peer.NewPeer("c1", "node", "127.0.0.1:2", true)

func waitSent(t *testing.T, node *mockNode) (*p2p.PeerData, cp.Message) {
	t.Helper()
	select {
	case pd := <-node.runner.sent:
		msg, err := cp.Unmarshal(pd.Data)
		require.NoError(t, err)
		return pd, msg
	case <-time.After(5 * time.Second):
		t.Fatal("nothing sent")
	}
	return nil, nil
}

func TestCoreMineBlock(t *testing.T) {
	defer leaktest.Check(t)()

	node := newMockNode()
	mined := generic.NewCounter("mined")
	height := generic.NewGauge("height")
	metrics := NopMetrics()
	metrics.BlocksMined = mined
	metrics.Height = height

	c := NewCore(&Config{Node: node, Metrics: metrics})
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := blockchain.MustParseData(`{"b":2,"a":1}`)
	block, err := c.MineBlock(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Index)
	assert.Equal(t, blockchain.Genesis().Hash, block.PrevHashString())
	assert.Equal(t, `{"a":1,"b":2}`, block.Data.String())
	assert.True(t, c.Latest().Equal(block))
	assert.Len(t, c.ListBlocks(), 2)
	assert.Equal(t, float64(1), mined.Value())
	assert.Equal(t, float64(2), height.Value())

	// the new block is broadcast as the latest
	pd, msg := waitSent(t, node)
	assert.Empty(t, pd.Peer)
	resp := msg.(*cp.ResponseChain)
	require.Len(t, resp.Blocks, 1)
	assert.True(t, resp.Blocks[0].Equal(block))

	second, err := c.MineBlock(ctx, blockchain.MustParseData(`null`))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Index)
	assert.NoError(t, blockchain.IsValidChain(c.ListBlocks()))
}

func TestCoreMineBlockLimits(t *testing.T) {
	defer leaktest.Check(t)()

	c := NewCore(&Config{Node: newMockNode()})

	huge, err := blockchain.NewData(strings.Repeat("x", params.MaxBlockDataSize))
	require.NoError(t, err)
	_, err = c.MineBlock(context.Background(), huge)
	assert.ErrorAs(t, err, &ErrDataTooLarge{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.MineBlock(ctx, blockchain.MustParseData(`1`))
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	c.Stop()
	_, err = c.MineBlock(context.Background(), blockchain.MustParseData(`1`))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCoreLoop(t *testing.T) {
	defer leaktest.Check(t)()

	node := newMockNode()
	c := NewCore(&Config{Node: node})
	defer c.Stop()

	// a new connection is asked for its tip
	node.runner.events <- &p2p.PeerEvent{Peer: &peerForTest, Connected: true}
	pd, msg := waitSent(t, node)
	assert.Equal(t, peerForTest.ConnID, pd.Peer)
	assert.IsType(t, &cp.QueryLatest{}, msg)

	// the peer is ahead by one block
	remote := extend([]*blockchain.Block{blockchain.Genesis()}, 1, "remote")
	node.runner.recv <- &p2p.PeerData{Peer: peerForTest.ConnID, Data: cp.NewResponseChain(remote[1:]).Marshal()}
	_, msg = waitSent(t, node)
	assert.True(t, msg.(*cp.ResponseChain).Blocks[0].Equal(remote[1]))
	assert.Len(t, c.ListBlocks(), 2)

	require.NoError(t, c.AddPeer(context.Background(), "127.0.0.1:18111"))
	assert.Equal(t, []string{"127.0.0.1:18111"}, c.ListPeers())
}
