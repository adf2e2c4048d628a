package peer

import (
	"fmt"

	"github.com/valency/foxcoin/crypto"
)

// Peer is the remote end of a live connection
type Peer struct {
	// ConnID identifies the connection, a new one for every connection
	ConnID string

	// NodeID is the remote node id learned in the handshake,
	// see crypto.PubKeyToID
	NodeID string

	// Address is the remote host:port of the socket
	Address string

	// ListenAddr is the p2p address the remote node announces, may be empty
	ListenAddr string

	// Inbound is true if the remote node dialed us
	Inbound bool
}

func NewPeer(connID, nodeID, address string, inbound bool) *Peer {
	return &Peer{
		ConnID:  connID,
		NodeID:  nodeID,
		Address: address,
		Inbound: inbound,
	}
}

func (p *Peer) String() string {
	direction := "out"
	if p.Inbound {
		direction = "in"
	}
	return fmt.Sprintf("node %s address %s (%s)", crypto.ShortID(p.NodeID), p.Address, direction)
}
