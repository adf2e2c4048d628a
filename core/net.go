package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/p2p"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/serialize/cp"
	"github.com/valency/foxcoin/utils"
)

const (
	coreProtocol  = "CoreProtocol"
	sendQueueSize = 512
)

var ErrStopped = errors.New("core stopped")

// syncAction is what a received chain did to the local chain
type syncAction int

const (
	syncIgnored syncAction = iota
	syncAppended
	syncQueryAll
	syncReplaced
	syncRejected
)

func (s syncAction) String() string {
	switch s {
	case syncIgnored:
		return "ignored"
	case syncAppended:
		return "appended"
	case syncQueryAll:
		return "query all"
	case syncReplaced:
		return "replaced"
	case syncRejected:
		return "rejected"
	}
	return "unknown"
}

type mineResult struct {
	block *blockchain.Block
	err   error
}

type mineRequest struct {
	data   blockchain.Data
	result chan mineResult
}

// net runs the "CoreProtocol" with other peers to reach agreement on the
// chain through the longest chain rule. Every packet, connection event and
// mining request is handled by the single loop goroutine.
type net struct {
	pr      p2p.ProtocolRunner
	node    Node
	chain   *blockchain.Chain
	metrics *Metrics

	// a peer closes the connection on frames above its read limit
	maxResponseSize int

	mineC chan *mineRequest
	sendQ chan *p2p.PeerData
	now   func() time.Time // for test stub
	lm    *utils.LoopMode
}

func newNet(node Node, chain *blockchain.Chain, metrics *Metrics) *net {
	result := &net{
		node:            node,
		chain:           chain,
		metrics:         metrics,
		maxResponseSize: params.MaxMessageSize,
		mineC:   make(chan *mineRequest),
		sendQ:   make(chan *p2p.PeerData, sendQueueSize),
		now:     time.Now,
		lm:      utils.NewLoop(),
	}

	result.pr = node.AddProtocol(result)
	return result
}

func (n *net) Name() string {
	return coreProtocol
}

func (n *net) start() {
	n.lm.StartWorking()
	n.metrics.Height.Set(float64(n.chain.Len()))
	n.lm.Go(n.loop)
	n.lm.Go(n.doSend)
}

func (n *net) stop() {
	n.lm.Stop()
}

func (n *net) loop() {
	recvPktChan := n.pr.GetRecvChan()
	eventChan := n.pr.GetEventChan()

	for {
		select {
		case <-n.lm.D:
			return
		case pkt := <-recvPktChan:
			n.handleRecvPacket(pkt)
		case ev := <-eventChan:
			n.handlePeerEvent(ev)
		case req := <-n.mineC:
			block, err := n.mine(req.data)
			req.result <- mineResult{block: block, err: err}
		}
	}
}

// mineBlock hands data to the loop and waits for the mined block
func (n *net) mineBlock(ctx context.Context, data blockchain.Data) (*blockchain.Block, error) {
	req := &mineRequest{
		data:   data,
		result: make(chan mineResult, 1),
	}

	select {
	case n.mineC <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.lm.D:
		return nil, ErrStopped
	}

	select {
	case res := <-req.result:
		return res.block, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *net) send(peer string, msg cp.Message) {
	n.enqueue(&p2p.PeerData{
		Peer: peer,
		Data: msg.Marshal(),
	})
}

func (n *net) broadcast(msg cp.Message) {
	n.enqueue(&p2p.PeerData{
		Data: msg.Marshal(),
	})
}

func (n *net) enqueue(pd *p2p.PeerData) {
	if pd.Data == nil {
		return
	}

	select {
	case n.sendQ <- pd:
	default:
		logger.Warn("net send queue full, drop packet")
	}
}

func (n *net) doSend() {
	for {
		select {
		case <-n.lm.D:
			return
		case sendData := <-n.sendQ:
			err := n.pr.Send(sendData)
			switch {
			case err == nil:
			case errors.Is(err, p2p.ErrNoPeers):
				logger.Debug("no peers to send to")
			default:
				logger.Warn("send failed: %v\n", err)
			}
		}
	}
}

func (n *net) responseLatest() cp.Message {
	return cp.NewResponseChain([]*blockchain.Block{n.chain.Latest()})
}

func (n *net) handlePeerEvent(ev *p2p.PeerEvent) {
	if ev.Connected {
		n.send(ev.Peer.ConnID, cp.NewQueryLatest())
	}
	// events may be dropped, the node knows the real number
	n.metrics.Peers.Set(float64(len(n.node.Peers())))
}

func (n *net) handleRecvPacket(pd *p2p.PeerData) {
	msg, err := cp.Unmarshal(pd.Data)
	if err != nil {
		n.metrics.MessagesReceived.With("type", "invalid").Add(1)
		logger.Warn("receive invalid msg from %s: %v\n", pd.Peer, err)
		return
	}

	switch m := msg.(type) {
	case *cp.QueryLatest:
		n.metrics.MessagesReceived.With("type", "query_latest").Add(1)
		n.send(pd.Peer, n.responseLatest())

	case *cp.QueryAll:
		n.metrics.MessagesReceived.With("type", "query_all").Add(1)
		data := cp.NewResponseChain(n.chain.Blocks()).Marshal()
		if len(data) > n.maxResponseSize {
			logger.Warn("whole chain of %d bytes is over the %d bytes frame limit, not sent to %s\n",
				len(data), n.maxResponseSize, pd.Peer)
			return
		}
		n.enqueue(&p2p.PeerData{Peer: pd.Peer, Data: data})

	case *cp.ResponseChain:
		n.metrics.MessagesReceived.With("type", "response_chain").Add(1)
		action := n.handleBlockchainResponse(m.Blocks)
		logger.Debug("response from %s: %v\n", pd.Peer, action)

	default:
		logger.Warn("receive unhandled msg type(%d) from %s\n", msg.Type(), pd.Peer)
	}
}

// handleBlockchainResponse reconciles the local chain with received blocks
func (n *net) handleBlockchainResponse(received []*blockchain.Block) syncAction {
	if len(received) == 0 {
		logger.Warn("receive an empty chain")
		return syncIgnored
	}

	sorted := make([]*blockchain.Block, len(received))
	copy(sorted, received)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	latestReceived := sorted[len(sorted)-1]
	latestHeld := n.chain.Latest()
	if latestReceived.Index <= latestHeld.Index {
		logger.Debug("received chain is not longer than ours, do nothing")
		return syncIgnored
	}

	logger.Info("chain possibly behind, we got %d, peer got %d\n",
		latestHeld.Index, latestReceived.Index)

	if latestReceived.PrevHash != nil && *latestReceived.PrevHash == latestHeld.Hash {
		if err := n.chain.TryAppend(latestReceived); err != nil {
			n.reject(err)
			return syncRejected
		}
		n.metrics.Height.Set(float64(n.chain.Len()))
		n.broadcast(n.responseLatest())
		return syncAppended
	}

	if len(sorted) == 1 {
		n.broadcast(cp.NewQueryAll())
		return syncQueryAll
	}

	if err := n.chain.Replace(sorted); err != nil {
		n.reject(err)
		return syncRejected
	}
	n.metrics.ChainReplaced.Add(1)
	n.metrics.Height.Set(float64(n.chain.Len()))
	n.broadcast(n.responseLatest())
	return syncReplaced
}

func (n *net) reject(err error) {
	n.metrics.BlocksRejected.With("reason", blockchain.RejectReason(err)).Add(1)
	logger.Warn("received blocks rejected: %v\n", err)
}

func (n *net) mine(data blockchain.Data) (*blockchain.Block, error) {
	block := blockchain.NextBlockAt(n.chain.Latest(), data, n.now())
	if err := n.chain.TryAppend(block); err != nil {
		return nil, err
	}

	n.metrics.BlocksMined.Add(1)
	n.metrics.Height.Set(float64(n.chain.Len()))
	n.broadcast(n.responseLatest())
	logger.Info("mined block %v\n", block)
	return block, nil
}
