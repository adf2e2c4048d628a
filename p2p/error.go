package p2p

import (
	"errors"
	"fmt"

	"github.com/valency/foxcoin/params"
)

var ErrNegotiateInvalidSig = errors.New("invalid signature")

var ErrNegotiateConnectionRefused = errors.New("connection refused")

var ErrNegotiateGenesisMismatch = errors.New("genesis mismatch")

var ErrNegotiateStaleTime = errors.New("handshake time out of range")

var ErrNegotiateSelfConnection = errors.New("connect to self")

var ErrNegotiateDuplicate = errors.New("node already connected")

var ErrNegotiateTooManyPeers = errors.New("too many peers")

var ErrBlacklisted = errors.New("address failed recently, try again later")

var ErrNodeStopped = errors.New("node stopped")

var ErrNoPeers = errors.New("not found any peers on the network yet")

type ErrNegotiateCodeVersionMismatch struct {
	minimizeVersionRequired params.CodeVersion
	remoteVersion           params.CodeVersion
}

func (n ErrNegotiateCodeVersionMismatch) Error() string {
	return fmt.Sprintf("code version mismatch, minimize required %d, got %d",
		n.minimizeVersionRequired, n.remoteVersion)
}

type ErrNegotiateBrokenData struct {
	info string
}

func (n ErrNegotiateBrokenData) Error() string {
	return n.info
}

// ErrPeerNotFound means the connection is gone
type ErrPeerNotFound struct {
	Peer string
}

func (p ErrPeerNotFound) Error() string {
	return fmt.Sprintf("peer %s not found", p.Peer)
}
