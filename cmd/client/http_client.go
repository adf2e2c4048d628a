package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/rpc"
	"github.com/valency/foxcoin/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type httpClient struct {
	server string
	client *http.Client
}

func newHTTPClient(conf *config) *httpClient {
	return &httpClient{
		server: conf.Server,
		client: &http.Client{
			Timeout: conf.Timeout,
		},
	}
}

func (hc *httpClient) listBlocks(ctx context.Context) ([]*blockchain.Block, error) {
	var blocks []*blockchain.Block
	if err := hc.do(ctx, http.MethodGet, rpc.BlocksPath, nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (hc *httpClient) mineBlock(ctx context.Context, data blockchain.Data) (*blockchain.Block, error) {
	body, err := json.Marshal(&rpc.MineBlockRequest{Data: data.Bytes()})
	if err != nil {
		return nil, err
	}

	block := &blockchain.Block{}
	if err := hc.do(ctx, http.MethodPost, rpc.MineBlockPath, body, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (hc *httpClient) listPeers(ctx context.Context) ([]string, error) {
	var peers []string
	if err := hc.do(ctx, http.MethodGet, rpc.PeersPath, nil, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

func (hc *httpClient) addPeer(ctx context.Context, peer string) error {
	body, err := json.Marshal(&rpc.AddPeerRequest{Peer: peer})
	if err != nil {
		return err
	}
	return hc.do(ctx, http.MethodPost, rpc.AddPeerPath, body, nil)
}

// do sends the request and decodes the data field of a successful response into data
func (hc *httpClient) do(ctx context.Context, method, path string, body []byte, data interface{}) error {
	var httpBody io.Reader
	if body != nil {
		httpBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, hc.server+path, httpBody)
	if err != nil {
		return fmt.Errorf("generate request failed:%v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request err:%v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read http body failed:%v", err)
	}

	// failures carry the envelope too, only its data is left out
	if resp.StatusCode != http.StatusOK {
		data = nil
	}
	httpResponse := rpc.ParseHTTPResponse(bodyBytes, data)
	if httpResponse == nil {
		return fmt.Errorf("HTTP request failed, return:%d", resp.StatusCode)
	}

	switch httpResponse.Code {
	case rpc.CodeSuccess:
		return nil
	case rpc.CodeFailed:
		return fmt.Errorf("failed: %s", httpResponse.Message)
	case rpc.CodeBadRequest:
		return fmt.Errorf("bad request: %s", httpResponse.Message)
	}
	return fmt.Errorf("response unknown code:%d", httpResponse.Code)
}

func printBlock(w io.Writer, b *blockchain.Block) {
	prevHash := "-"
	if b.PrevHash != nil {
		prevHash = *b.PrevHash
	}

	fmt.Fprintf(w, `Block <%s> Index:%d
Time		%s
PrevHash	%s
Data		%s
`, b.Hash, b.Index, utils.TimeToString(b.Timestamp), prevHash, b.Data)
	fmt.Fprintln(w, "--------------------------------------------------------")
}
