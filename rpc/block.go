package rpc

import (
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/params"
)

const (
	// BlocksPath GET /blocks
	BlocksPath = "/blocks"

	// MineBlockPath POST /mineBlock
	MineBlockPath = "/mineBlock"
)

func (s *Server) blockHandlers() HTTPHandlers {
	return HTTPHandlers{
		{BlocksPath, s.listBlocks},
		{MineBlockPath, s.mineBlock},
	}
}

/*
GET /blocks

data: the whole chain from the genesis block
*/

func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(http.MethodGet, w)
		return
	}
	okResponse(s.c.ListBlocks(), w)
}

/*
POST /mineBlock

{"data": <any json>}

data: the mined block
*/

type MineBlockRequest struct {
	Data jsoniter.RawMessage `json:"data"`
}

func (s *Server) mineBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(http.MethodPost, w)
		return
	}

	req := &MineBlockRequest{}
	body := http.MaxBytesReader(w, r.Body, params.MaxRequestBodySize)
	if err := json.NewDecoder(body).Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reply(http.StatusRequestEntityTooLarge, &HTTPResponse{
				Code:    CodeBadRequest,
				Message: fmt.Sprintf("request body is over the %d bytes limit", tooLarge.Limit),
			}, w)
			return
		}
		badRequestResponse(w, "invalid request body: %v", err)
		return
	}

	data, err := blockchain.ParseData(req.Data)
	if err != nil {
		badRequestResponse(w, "%v", err)
		return
	}

	block, err := s.c.MineBlock(r.Context(), data)
	if err != nil {
		logger.Warn("mine block failed: %v\n", err)
		failedResponse(err, http.StatusInternalServerError, w)
		return
	}
	okResponse(block, w)
}
