package rpc

import (
	"net/http"
	"strings"
)

const (
	// PeersPath GET /peers
	PeersPath = "/peers"

	// AddPeerPath POST /addPeer
	AddPeerPath = "/addPeer"

	maxAddPeerBody = 4096
)

func (s *Server) peerHandlers() HTTPHandlers {
	return HTTPHandlers{
		{PeersPath, s.listPeers},
		{AddPeerPath, s.addPeer},
	}
}

// GET /peers, data: ["host:port", ...]
func (s *Server) listPeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(http.MethodGet, w)
		return
	}
	okResponse(s.c.ListPeers(), w)
}

// POST /addPeer {"peer": "ws://host:port"}
type AddPeerRequest struct {
	Peer string `json:"peer"`
}

func (s *Server) addPeer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(http.MethodPost, w)
		return
	}

	req := &AddPeerRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAddPeerBody)).Decode(req); err != nil {
		badRequestResponse(w, "invalid request body: %v", err)
		return
	}
	req.Peer = strings.TrimSpace(req.Peer)
	if len(req.Peer) == 0 {
		badRequestResponse(w, "missing peer")
		return
	}

	if err := s.c.AddPeer(r.Context(), req.Peer); err != nil {
		logger.Warn("add peer %s failed: %v\n", req.Peer, err)
		failedResponse(err, http.StatusBadGateway, w)
		return
	}
	okResponse(nil, w)
}
