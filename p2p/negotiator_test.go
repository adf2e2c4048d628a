package p2p

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/params"
)

const testGenesis = "816534932c2b7154836da6afc367695e6337db8a921823784c14378abed4f7d7"

func newTestNegotiator(t *testing.T, genesis string) *negotiator {
	t.Helper()
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	ng := newNegotiator(key, genesis)
	ng.listen = "127.0.0.1:18111"
	return ng
}

func TestHandshake(t *testing.T) {
	dialer := newTestNegotiator(t, testGenesis)
	acceptor := newTestNegotiator(t, testGenesis)

	header, err := dialer.request()
	require.NoError(t, err)

	h, err := acceptor.verifyRequest(header)
	require.NoError(t, err)
	assert.Equal(t, dialer.nodeID, h.nodeID)
	assert.Equal(t, "127.0.0.1:18111", h.listen)

	nodeID, err := dialer.verifyResponse(acceptor.response())
	require.NoError(t, err)
	assert.Equal(t, acceptor.nodeID, nodeID)
}

func TestHandshakeRefused(t *testing.T) {
	acceptor := newTestNegotiator(t, testGenesis)

	t.Run("tampered", func(t *testing.T) {
		header, err := newTestNegotiator(t, testGenesis).request()
		require.NoError(t, err)
		header.Set(headerListen, "10.0.0.1:1")
		_, err = acceptor.verifyRequest(header)
		assert.ErrorIs(t, err, ErrNegotiateInvalidSig)
	})

	t.Run("forged node id", func(t *testing.T) {
		header, err := newTestNegotiator(t, testGenesis).request()
		require.NoError(t, err)
		header.Set(headerNode, newTestNegotiator(t, testGenesis).nodeID)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorIs(t, err, ErrNegotiateInvalidSig)
	})

	t.Run("genesis", func(t *testing.T) {
		header, err := newTestNegotiator(t, "other").request()
		require.NoError(t, err)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorIs(t, err, ErrNegotiateGenesisMismatch)

		_, err = acceptor.verifyResponse(newTestNegotiator(t, "other").response())
		assert.ErrorIs(t, err, ErrNegotiateGenesisMismatch)
	})

	t.Run("version", func(t *testing.T) {
		old := newTestNegotiator(t, testGenesis)
		old.codeVersion = params.MinimizeVersionRequired - 1
		header, err := old.request()
		require.NoError(t, err)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorAs(t, err, &ErrNegotiateCodeVersionMismatch{})
	})

	t.Run("stale", func(t *testing.T) {
		late := newTestNegotiator(t, testGenesis)
		late.now = func() time.Time { return time.Now().Add(-time.Hour) }
		header, err := late.request()
		require.NoError(t, err)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorIs(t, err, ErrNegotiateStaleTime)
	})

	t.Run("self", func(t *testing.T) {
		header, err := acceptor.request()
		require.NoError(t, err)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorIs(t, err, ErrNegotiateSelfConnection)
	})

	t.Run("broken", func(t *testing.T) {
		header, err := newTestNegotiator(t, testGenesis).request()
		require.NoError(t, err)
		header.Del(headerSig)
		_, err = acceptor.verifyRequest(header)
		assert.ErrorAs(t, err, &ErrNegotiateBrokenData{})

		header.Set(headerVersion, "x")
		_, err = acceptor.verifyRequest(header)
		assert.ErrorAs(t, err, &ErrNegotiateBrokenData{})
	})

	t.Run("response with bad node id", func(t *testing.T) {
		header := acceptor.response()
		header.Set(headerNode, "AAAA")
		_, err := newTestNegotiator(t, testGenesis).verifyResponse(header)
		assert.ErrorAs(t, err, &ErrNegotiateBrokenData{})
		_, err = crypto.IDToPubKey("AAAA")
		assert.Error(t, err)
	})
}
