package p2p

import (
	"sort"
	"strings"
	"sync"

	"github.com/valency/foxcoin/p2p/peer"
)

// connManager keeps every live conn, keyed by connection id
type connManager struct {
	mutex      sync.RWMutex
	conns      map[string]*conn // <conn ID, conn>
	maxPeerNum int
	closed     bool
}

func newConnManager(maxPeerNum int) *connManager {
	return &connManager{
		conns:      make(map[string]*conn),
		maxPeerNum: maxPeerNum,
	}
}

func (c *connManager) add(connection *conn) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return ErrNodeStopped
	}
	if len(c.conns) >= c.maxPeerNum {
		return ErrNegotiateTooManyPeers
	}
	for _, existing := range c.conns {
		if existing.p.NodeID == connection.p.NodeID {
			return ErrNegotiateDuplicate
		}
	}

	c.conns[connection.p.ConnID] = connection
	return nil
}

// remove returns false if the conn was already removed
func (c *connManager) remove(connID string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.conns[connID]; !ok {
		return false
	}
	delete(c.conns, connID)
	return true
}

func (c *connManager) size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.conns)
}

func (c *connManager) isFull() bool {
	return c.size() >= c.maxPeerNum
}

func (c *connManager) isNodeConnected(nodeID string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, existing := range c.conns {
		if existing.p.NodeID == nodeID {
			return true
		}
	}
	return false
}

// peers returns the remote peers ordered by address
func (c *connManager) peers() []*peer.Peer {
	c.mutex.RLock()
	result := make([]*peer.Peer, 0, len(c.conns))
	for _, existing := range c.conns {
		result = append(result, existing.p)
	}
	c.mutex.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

// send broadcasts dp.Data if dp.Peer is empty, otherwise sends it to that conn.
// It never blocks: a conn with a full queue drops the data.
func (c *connManager) send(dp *PeerData) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if len(c.conns) == 0 {
		return ErrNoPeers
	}

	// broadcast
	if len(dp.Peer) == 0 {
		for _, connection := range c.conns {
			connection.send(dp.Data)
		}
		return nil
	}

	// unicast
	connection, ok := c.conns[dp.Peer]
	if !ok {
		return ErrPeerNotFound{Peer: dp.Peer}
	}
	connection.send(dp.Data)
	return nil
}

// stopAll refuses new conns and stops the existing ones
func (c *connManager) stopAll() {
	c.mutex.Lock()
	c.closed = true
	stopping := make([]*conn, 0, len(c.conns))
	for id, connection := range c.conns {
		stopping = append(stopping, connection)
		delete(c.conns, id)
	}
	c.mutex.Unlock()

	for _, connection := range stopping {
		connection.stop()
	}
}

func (c *connManager) String() string {
	var result strings.Builder
	for _, p := range c.peers() {
		result.WriteString("[" + p.String() + "] ")
	}
	return result.String()
}
