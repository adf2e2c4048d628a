package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valency/foxcoin/core"
	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/p2p"
	"github.com/valency/foxcoin/params"
)

type fakeCore struct {
	mutex  sync.Mutex
	blocks []*blockchain.Block
	peers  []string
}

func newFakeCore() *fakeCore {
	return &fakeCore{blocks: []*blockchain.Block{blockchain.Genesis()}}
}

func (f *fakeCore) ListBlocks() []*blockchain.Block {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]*blockchain.Block(nil), f.blocks...)
}

func (f *fakeCore) MineBlock(ctx context.Context, data blockchain.Data) (*blockchain.Block, error) {
	switch data.String() {
	case `"huge"`:
		return nil, core.ErrDataTooLarge{Size: params.MaxBlockDataSize + 1}
	case `"stopped"`:
		return nil, core.ErrStopped
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	b := blockchain.NextBlockAt(f.blocks[len(f.blocks)-1], data, time.Unix(1600000000, 0))
	f.blocks = append(f.blocks, b)
	return b, nil
}

func (f *fakeCore) ListPeers() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string{}, f.peers...)
}

func (f *fakeCore) AddPeer(ctx context.Context, address string) error {
	if strings.Contains(address, "refused") {
		return errors.New("connection refused")
	}
	if strings.Contains(address, "blacklisted") {
		return fmt.Errorf("dial %s: %w", address, p2p.ErrBlacklisted)
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.peers = append(f.peers, address)
	return nil
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, *HTTPResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Type") != "application/json" {
		return rec, nil
	}

	resp := ParseHTTPResponse(rec.Body.Bytes(), nil)
	require.NotNil(t, resp, rec.Body.String())
	return rec, resp
}

func TestBlocks(t *testing.T) {
	c := newFakeCore()
	s := NewServer(&Config{C: c})

	_, resp := do(t, s, http.MethodGet, BlocksPath, "")
	assert.Equal(t, CodeSuccess, resp.Code)

	var blocks []*blockchain.Block
	rec, _ := do(t, s, http.MethodGet, BlocksPath, "")
	require.NotNil(t, ParseHTTPResponse(rec.Body.Bytes(), &blocks))
	require.Len(t, blocks, 1)
	assert.True(t, blockchain.IsGenesis(blocks[0]))
	assert.Contains(t, rec.Body.String(), `"prev_hash":null`)

	rec, resp = do(t, s, http.MethodPost, BlocksPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
	assert.Equal(t, CodeBadRequest, resp.Code)
}

func TestMineBlock(t *testing.T) {
	c := newFakeCore()
	s := NewServer(&Config{C: c})

	block := &blockchain.Block{}
	rec, _ := do(t, s, http.MethodPost, MineBlockPath, `{"data":[{"to":"bob","amount":5}]}`)
	resp := ParseHTTPResponse(rec.Body.Bytes(), block)
	require.NotNil(t, resp)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, uint64(1), block.Index)
	assert.Equal(t, `[{"amount":5,"to":"bob"}]`, block.Data.String())
	assert.Equal(t, block.CalculateHash(), block.Hash)

	// missing data mines a null payload
	_, resp = do(t, s, http.MethodPost, MineBlockPath, `{}`)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Len(t, c.ListBlocks(), 3)

	for _, body := range []string{``, `{"data":`, `not json`, "{\"data\":\"\xff\"}", `{"data":1e400}`} {
		rec, resp = do(t, s, http.MethodPost, MineBlockPath, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, CodeBadRequest, resp.Code, body)
	}
	rec, resp = do(t, s, http.MethodGet, MineBlockPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, CodeBadRequest, resp.Code)
	assert.Len(t, c.ListBlocks(), 3)

	rec, resp = do(t, s, http.MethodPost, MineBlockPath, `{"data":"huge"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeBadRequest, resp.Code)

	rec, resp = do(t, s, http.MethodPost, MineBlockPath,
		`{"data":"`+strings.Repeat("x", params.MaxRequestBodySize)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeBadRequest, resp.Code)
	assert.Len(t, c.ListBlocks(), 3)

	rec, resp = do(t, s, http.MethodPost, MineBlockPath, `{"data":"stopped"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeFailed, resp.Code)
	assert.Equal(t, core.ErrStopped.Error(), resp.Message)
}

func TestPeers(t *testing.T) {
	c := newFakeCore()
	s := NewServer(&Config{C: c})

	var peers []string
	rec, _ := do(t, s, http.MethodGet, PeersPath, "")
	require.NotNil(t, ParseHTTPResponse(rec.Body.Bytes(), &peers))
	assert.Empty(t, peers)

	rec, resp := do(t, s, http.MethodPost, AddPeerPath, `{"peer":"ws://127.0.0.1:18112"}`)
	assert.Equal(t, CodeSuccess, resp.Code)

	rec, resp = do(t, s, http.MethodPost, AddPeerPath, `{"peer":"refused:1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeFailed, resp.Code)
	assert.Equal(t, "connection refused", resp.Message)

	rec, resp = do(t, s, http.MethodPost, AddPeerPath, `{"peer":"blacklisted:1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeFailed, resp.Code)

	rec, resp = do(t, s, http.MethodPost, AddPeerPath, `{"peer":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, resp.Code)

	rec, _ = do(t, s, http.MethodGet, PeersPath, "")
	require.NotNil(t, ParseHTTPResponse(rec.Body.Bytes(), &peers))
	assert.Equal(t, []string{"ws://127.0.0.1:18112"}, peers)
}

func TestMetricsAndCORS(t *testing.T) {
	s := NewServer(&Config{C: newFakeCore(), CORSAllowedOrigins: []string{"http://example.com"}})

	rec, _ := do(t, s, http.MethodGet, MetricsPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	req := httptest.NewRequest(http.MethodGet, BlocksPath, nil)
	req.Header.Set("Origin", "http://example.com")
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = do(t, s, http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(&Config{Host: LocalHost, Port: 0, C: newFakeCore()})
	require.NoError(t, s.Start())
	defer s.Stop()

	resp, err := http.Get("http://" + s.ListenAddr().String() + PeersPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
