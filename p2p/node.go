package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/net/netutil"

	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/p2p/peer"
	"github.com/valency/foxcoin/utils"
)

var logger = utils.NewLogger("p2p")

const (
	ngBlackListTTL   = 30 * time.Minute
	handshakeTimeout = 10 * time.Second

	// inbound sockets allowed above the peer limit, so that the
	// extra ones can still be refused with a status code
	pendingHandshakes = 8
)

// Config is configs for the p2p network Node
type Config struct {
	ListenIP    string
	ListenPort  int
	MaxPeerNum  int
	PrivKey     *btcec.PrivateKey
	GenesisHash string
}

// Node is a node that can communicate with others in the p2p network.
// It accepts websocket connections on "/" and dials the addresses given to Connect.
type Node struct {
	privKey    *btcec.PrivateKey
	nodeID     string
	listenAddr string
	maxPeerNum int

	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	conns *connManager

	protocolMutex sync.Mutex
	runner        *protocolRunner

	ng          *negotiator
	ngBlackList *ttlcache.Cache[string, time.Time] // <dial url, failed at>

	stopOnce sync.Once
	lm       *utils.LoopMode
}

// NewNode returns a p2p network Node
func NewNode(c *Config) (*Node, error) {
	ip := net.ParseIP(c.ListenIP)
	if ip == nil {
		return nil, fmt.Errorf("invalid listen ip %q", c.ListenIP)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return nil, fmt.Errorf("invalid listen port %d", c.ListenPort)
	}
	if c.MaxPeerNum <= 0 {
		return nil, fmt.Errorf("invalid max peers %d", c.MaxPeerNum)
	}
	if c.PrivKey == nil {
		return nil, errors.New("missing node key")
	}

	n := &Node{
		privKey:    c.PrivKey,
		nodeID:     crypto.PrivKeyToID(c.PrivKey),
		listenAddr: net.JoinHostPort(ip.String(), strconv.Itoa(c.ListenPort)),
		maxPeerNum: c.MaxPeerNum,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
			// peers are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		conns: newConnManager(c.MaxPeerNum),
		ng:    newNegotiator(c.PrivKey, c.GenesisHash),
		ngBlackList: ttlcache.New[string, time.Time](
			ttlcache.WithTTL[string, time.Time](ngBlackListTTL),
		),
		lm: utils.NewLoop(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", n.handleUpgrade)
	n.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: handshakeTimeout,
	}
	return n, nil
}

func (n *Node) String() string {
	return fmt.Sprintf("[Node] %s listen on %v", crypto.ShortID(n.nodeID), n.Addr())
}

// NodeID returns the id of the node key
func (n *Node) NodeID() string {
	return n.nodeID
}

// Addr returns the listening address, valid after Start
func (n *Node) Addr() net.Addr {
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// AddProtocol adds the runtime p2p network protocol.
// Frames carry no protocol id, so a node runs exactly one protocol.
func (n *Node) AddProtocol(p Protocol) ProtocolRunner {
	n.protocolMutex.Lock()
	defer n.protocolMutex.Unlock()

	if n.runner != nil {
		logger.Fatal("protocol conflicts, exists:%s, wanted to add:%s",
			n.runner.protocol.Name(), p.Name())
	}
	n.runner = newProtocolRunner(p, n)
	return n.runner
}

func (n *Node) Start() error {
	listener, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.listenAddr, err)
	}
	n.listener = netutil.LimitListener(listener, n.maxPeerNum+pendingHandshakes)
	n.ng.listen = listener.Addr().String()

	n.lm.StartWorking()
	n.lm.Go(n.ngBlackList.Start)
	n.lm.Go(func() {
		if err := n.server.Serve(n.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("p2p server stopped: %v\n", err)
		}
	})

	logger.Info("node %s listen on %v\n", crypto.ShortID(n.nodeID), n.listener.Addr())
	return nil
}

func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		if !n.lm.IsWorking() {
			return
		}
		n.server.Close()
		n.ngBlackList.Stop()
		n.lm.Stop()
		n.conns.stopAll()
	})
}

// Connect dials a peer given as "host:port" or a ws:// url and
// sets up the connection after a successful handshake
func (n *Node) Connect(ctx context.Context, address string) error {
	if !n.lm.IsWorking() {
		return ErrNodeStopped
	}

	target, err := utils.PeerURL(address)
	if err != nil {
		return err
	}
	if n.ngBlackList.Has(target) {
		return ErrBlacklisted
	}
	if n.conns.isFull() {
		return ErrNegotiateTooManyPeers
	}

	header, err := n.ng.request()
	if err != nil {
		return err
	}

	ws, resp, err := n.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp == nil {
			return fmt.Errorf("connect to %s: %w", target, err)
		}
		switch resp.StatusCode {
		case http.StatusConflict:
			return fmt.Errorf("handshake to %s: %w", target, ErrNegotiateDuplicate)
		case http.StatusServiceUnavailable:
			return fmt.Errorf("handshake to %s: %w", target, ErrNegotiateTooManyPeers)
		}
		// the remote node refused our handshake itself
		n.addNgBlackList(target)
		return fmt.Errorf("handshake to %s: %w (%s)", target, ErrNegotiateConnectionRefused, resp.Status)
	}

	nodeID, err := n.ng.verifyResponse(resp.Header)
	if err != nil {
		ws.Close()
		n.addNgBlackList(target)
		return fmt.Errorf("handshake to %s: %w", target, err)
	}

	u, _ := url.Parse(target)
	p := peer.NewPeer(uuid.NewString(), nodeID, u.Host, false)
	p.ListenAddr = u.Host
	return n.addConn(p, ws)
}

// Peers returns the host:port of every connected peer
func (n *Node) Peers() []string {
	peers := n.conns.peers()
	result := make([]string, 0, len(peers))
	for _, p := range peers {
		result = append(result, p.Address)
	}
	return result
}

func (n *Node) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	h, err := n.ng.verifyRequest(r.Header)
	if err == nil {
		if n.conns.isNodeConnected(h.nodeID) {
			err = ErrNegotiateDuplicate
		} else if n.conns.isFull() {
			err = ErrNegotiateTooManyPeers
		}
	}
	if err != nil {
		logger.Warn("refuse handshake from %s: %v\n", r.RemoteAddr, err)
		http.Error(w, err.Error(), refuseStatus(err))
		return
	}

	ws, err := n.upgrader.Upgrade(w, r, n.ng.response())
	if err != nil {
		// the upgrader has replied already
		logger.Warn("upgrade %s failed: %v\n", r.RemoteAddr, err)
		return
	}

	p := peer.NewPeer(uuid.NewString(), h.nodeID, r.RemoteAddr, true)
	p.ListenAddr = h.listen
	if err := n.addConn(p, ws); err != nil {
		logger.Warn("add inbound %v failed: %v\n", p, err)
	}
}

// refuseStatus tells the dialer whether the refusal lasts: 403 for an
// invalid handshake, 409 and 503 for states that pass
func refuseStatus(err error) int {
	switch {
	case errors.Is(err, ErrNegotiateDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrNegotiateTooManyPeers):
		return http.StatusServiceUnavailable
	}
	return http.StatusForbidden
}

func (n *Node) addConn(p *peer.Peer, ws *websocket.Conn) error {
	c := newConn(p, ws, n.remoteRecv, n.removeConn)
	if err := n.conns.add(c); err != nil {
		ws.Close()
		return err
	}

	c.start()
	logger.Info("connected %v\n", p)
	n.notify(&PeerEvent{Peer: p, Connected: true})
	return nil
}

func (n *Node) removeConn(c *conn) {
	if n.conns.remove(c.p.ConnID) {
		logger.Info("disconnected %v\n", c.p)
		n.notify(&PeerEvent{Peer: c.p, Connected: false})
	}
}

func (n *Node) notify(ev *PeerEvent) {
	n.protocolMutex.Lock()
	runner := n.runner
	n.protocolMutex.Unlock()
	if runner == nil {
		return
	}

	select {
	case runner.Events <- ev:
	default:
		logger.Warn("protocol %s event queue full, drop it\n", runner.protocol.Name())
	}
}

func (n *Node) remoteRecv(p *peer.Peer, data []byte) {
	n.protocolMutex.Lock()
	runner := n.runner
	n.protocolMutex.Unlock()
	if runner == nil {
		return
	}

	select {
	case runner.Data <- &PeerData{
		Peer: p.ConnID,
		Data: data,
	}:
	default:
		logger.Warn("protocol %s recv packet queue full, drop it\n", runner.protocol.Name())
	}
}

func (n *Node) addNgBlackList(target string) {
	n.ngBlackList.Set(target, time.Now(), ttlcache.DefaultTTL)
}
