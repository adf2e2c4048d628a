package p2p

import "github.com/valency/foxcoin/p2p/peer"

// Protocol is the interface that the p2p network protocol must implement
type Protocol interface {
	Name() string
}

// ProtocolRunner defines the interface for accessing the p2p network
type ProtocolRunner interface {
	// Send sends data to network
	// returns nil on success, or ErrPeerNotFound, ErrNoPeers on fail
	Send(dp *PeerData) error

	// GetRecvChan returns a channel for getting network data
	GetRecvChan() <-chan *PeerData

	// GetEventChan returns a channel reporting connections opened and closed
	GetEventChan() <-chan *PeerEvent
}

// PeerData combines network data and peer info
type PeerData struct {
	// the Peer is the send target or the receive source connection ID;
	// if Peer is empty string, means broadcast to every connection (used in sending data)
	Peer string
	Data []byte
}

// PeerEvent reports a connection that was set up or closed
type PeerEvent struct {
	Peer      *peer.Peer
	Connected bool
}

const runnerQueueSize = 2048

type protocolRunner struct {
	Data     chan *PeerData
	Events   chan *PeerEvent
	protocol Protocol
	n        *Node
}

func newProtocolRunner(protocol Protocol, node *Node) *protocolRunner {
	return &protocolRunner{
		protocol: protocol,
		n:        node,
		Data:     make(chan *PeerData, runnerQueueSize),
		Events:   make(chan *PeerEvent, runnerQueueSize),
	}
}

func (p *protocolRunner) Send(dp *PeerData) error {
	return p.n.conns.send(dp)
}

func (p *protocolRunner) GetRecvChan() <-chan *PeerData {
	return p.Data
}

func (p *protocolRunner) GetEventChan() <-chan *PeerEvent {
	return p.Events
}
