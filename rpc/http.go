package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/utils"
)

var logger = utils.NewLogger("http")

const (
	// LocalHost "127.0.0.1"
	LocalHost = "127.0.0.1"

	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Core is what the control plane serves
type Core interface {
	ListBlocks() []*blockchain.Block
	MineBlock(ctx context.Context, data blockchain.Data) (*blockchain.Block, error)
	ListPeers() []string
	AddPeer(ctx context.Context, address string) error
}

type Config struct {
	Host string
	Port int
	C    Core

	// CORSAllowedOrigins enables CORS for the listed origins, "*" for any
	CORSAllowedOrigins []string
}

// Server is a http server provides interfaces for listing blocks and peers,
// mining a block and adding a peer
type Server struct {
	*http.Server
	c        Core
	listener net.Listener
}

type HTTPHandlers = []struct {
	Path string
	F    func(http.ResponseWriter, *http.Request)
}

func NewServer(conf *Config) *Server {
	s := &Server{c: conf.C}

	sMux := http.NewServeMux()
	// block
	for _, handler := range s.blockHandlers() {
		sMux.HandleFunc(handler.Path, handler.F)
	}
	// peer
	for _, handler := range s.peerHandlers() {
		sMux.HandleFunc(handler.Path, handler.F)
	}
	sMux.Handle(MetricsPath, promhttp.Handler())

	//default handler
	sMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	var handler http.Handler = sMux
	if len(conf.CORSAllowedOrigins) != 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: conf.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(sMux)
	}

	host := conf.Host
	if len(host) == 0 {
		host = LocalHost
	}
	s.Server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(conf.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped: %v\n", err)
		}
	}()
	logger.Info("http server listen on %v\n", listener.Addr())
	return nil
}

// ListenAddr returns the listening address, valid after Start
func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown err:%v\n", err)
	}
}
