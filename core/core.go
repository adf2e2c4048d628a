package core

import (
	"context"
	"fmt"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/p2p"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/utils"
)

var (
	logger = utils.NewLogger("core")
)

// Node is the part of the p2p network Node the core works on
type Node interface {
	AddProtocol(p p2p.Protocol) p2p.ProtocolRunner
	Connect(ctx context.Context, address string) error
	Peers() []string
}

type Config struct {
	Node    Node
	Metrics *Metrics
}

// ErrDataTooLarge means the data of a block to mine is over params.MaxBlockDataSize
type ErrDataTooLarge struct {
	Size int
}

func (e ErrDataTooLarge) Error() string {
	return fmt.Sprintf("block data of %d bytes is over the %d bytes limit", e.Size, params.MaxBlockDataSize)
}

type Core struct {
	chain *blockchain.Chain
	node  Node
	n     *net
}

func NewCore(conf *Config) *Core {
	metrics := conf.Metrics
	if metrics == nil {
		metrics = NopMetrics()
	}

	chain := blockchain.NewChain()
	n := newNet(conf.Node, chain, metrics)
	n.start()

	return &Core{
		chain: chain,
		node:  conf.Node,
		n:     n,
	}
}

// Stop stops the core module working
func (c *Core) Stop() {
	c.n.stop()
}

// ListBlocks returns the accepted chain from the genesis block
func (c *Core) ListBlocks() []*blockchain.Block {
	return c.chain.Blocks()
}

// Latest returns the tip of the accepted chain
func (c *Core) Latest() *blockchain.Block {
	return c.chain.Latest()
}

// MineBlock appends a new block holding data to the chain and
// broadcasts it; it never interleaves with the chain sync
func (c *Core) MineBlock(ctx context.Context, data blockchain.Data) (*blockchain.Block, error) {
	if size := len(data.Bytes()); size > params.MaxBlockDataSize {
		return nil, ErrDataTooLarge{Size: size}
	}
	return c.n.mineBlock(ctx, data)
}

// ListPeers returns host:port of every connected peer
func (c *Core) ListPeers() []string {
	return c.node.Peers()
}

// AddPeer connects to address; the chains are synced once connected
func (c *Core) AddPeer(ctx context.Context, address string) error {
	return c.node.Connect(ctx, address)
}
