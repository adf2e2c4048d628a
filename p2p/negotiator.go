package p2p

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec"

	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/params"
)

/*
The handshake rides on the websocket upgrade request.
dialer:
	1. fills the headers: version, genesis hash, node id, listen address, unix time
	2. signs sha256 of those values joined by "|" with the node key
	3. sends the upgrade request
acceptor:
	1. checks version, genesis, signature (key recovered from the node id), time
	2. refuses with 403 on failure, otherwise upgrades and answers its own
	   version, genesis and node id
dialer:
	checks the answer before using the connection
*/

const (
	headerVersion = "X-Foxcoin-Version"
	headerGenesis = "X-Foxcoin-Genesis"
	headerNode    = "X-Foxcoin-Node"
	headerListen  = "X-Foxcoin-Listen"
	headerTime    = "X-Foxcoin-Time"
	headerSig     = "X-Foxcoin-Sig"

	maxClockSkew = 5 * time.Minute
)

type handshake struct {
	version params.CodeVersion
	genesis string
	nodeID  string
	listen  string
	time    int64
	sig     string
}

func (h *handshake) signedContent() []byte {
	return []byte(strings.Join([]string{
		strconv.Itoa(int(h.version)),
		h.genesis,
		h.nodeID,
		h.listen,
		strconv.FormatInt(h.time, 10),
	}, "|"))
}

func (h *handshake) header() http.Header {
	header := http.Header{}
	header.Set(headerVersion, strconv.Itoa(int(h.version)))
	header.Set(headerGenesis, h.genesis)
	header.Set(headerNode, h.nodeID)
	if len(h.listen) != 0 {
		header.Set(headerListen, h.listen)
	}
	if h.time != 0 {
		header.Set(headerTime, strconv.FormatInt(h.time, 10))
	}
	if len(h.sig) != 0 {
		header.Set(headerSig, h.sig)
	}
	return header
}

func parseHandshake(header http.Header, signed bool) (*handshake, error) {
	version, err := strconv.ParseUint(header.Get(headerVersion), 10, 16)
	if err != nil {
		return nil, ErrNegotiateBrokenData{info: "invalid " + headerVersion}
	}

	h := &handshake{
		version: params.CodeVersion(version),
		genesis: header.Get(headerGenesis),
		nodeID:  header.Get(headerNode),
		listen:  header.Get(headerListen),
		sig:     header.Get(headerSig),
	}
	if len(h.genesis) == 0 || len(h.nodeID) == 0 {
		return nil, ErrNegotiateBrokenData{info: "missing genesis or node id"}
	}

	if signed {
		if h.time, err = strconv.ParseInt(header.Get(headerTime), 10, 64); err != nil {
			return nil, ErrNegotiateBrokenData{info: "invalid " + headerTime}
		}
		if len(h.sig) == 0 {
			return nil, ErrNegotiateBrokenData{info: "missing " + headerSig}
		}
	}
	return h, nil
}

type negotiator struct {
	privKey                 *btcec.PrivateKey
	nodeID                  string
	genesis                 string
	listen                  string
	codeVersion             params.CodeVersion
	minimizeVersionRequired params.CodeVersion
	now                     func() time.Time // for test stub
}

func newNegotiator(privKey *btcec.PrivateKey, genesis string) *negotiator {
	return &negotiator{
		privKey:                 privKey,
		nodeID:                  crypto.PrivKeyToID(privKey),
		genesis:                 genesis,
		codeVersion:             params.CurrentCodeVersion,
		minimizeVersionRequired: params.MinimizeVersionRequired,
		now:                     time.Now,
	}
}

// request returns the signed headers of an upgrade request
func (n *negotiator) request() (http.Header, error) {
	h := &handshake{
		version: n.codeVersion,
		genesis: n.genesis,
		nodeID:  n.nodeID,
		listen:  n.listen,
		time:    n.now().Unix(),
	}

	sig, err := crypto.Sign(n.privKey, h.signedContent())
	if err != nil {
		return nil, err
	}
	h.sig = sig
	return h.header(), nil
}

// verifyRequest checks the upgrade request headers of a remote node
func (n *negotiator) verifyRequest(header http.Header) (*handshake, error) {
	h, err := parseHandshake(header, true)
	if err != nil {
		return nil, err
	}

	if err := n.checkRemote(h); err != nil {
		return nil, err
	}

	if err := crypto.VerifyByID(h.nodeID, h.signedContent(), h.sig); err != nil {
		return nil, ErrNegotiateInvalidSig
	}

	skew := n.now().Sub(time.Unix(h.time, 0))
	if skew > maxClockSkew || skew < -maxClockSkew {
		return nil, ErrNegotiateStaleTime
	}
	return h, nil
}

// response returns the headers answered on an accepted upgrade
func (n *negotiator) response() http.Header {
	h := &handshake{
		version: n.codeVersion,
		genesis: n.genesis,
		nodeID:  n.nodeID,
	}
	return h.header()
}

// verifyResponse checks the upgrade response headers and returns the remote node id
func (n *negotiator) verifyResponse(header http.Header) (string, error) {
	h, err := parseHandshake(header, false)
	if err != nil {
		return "", err
	}

	if err := n.checkRemote(h); err != nil {
		return "", err
	}
	if _, err := crypto.IDToPubKey(h.nodeID); err != nil {
		return "", ErrNegotiateBrokenData{info: "invalid node id"}
	}
	return h.nodeID, nil
}

func (n *negotiator) checkRemote(h *handshake) error {
	if h.version < n.minimizeVersionRequired {
		return ErrNegotiateCodeVersionMismatch{n.minimizeVersionRequired, h.version}
	}
	if h.genesis != n.genesis {
		return ErrNegotiateGenesisMismatch
	}
	if h.nodeID == n.nodeID {
		return ErrNegotiateSelfConnection
	}
	return nil
}
