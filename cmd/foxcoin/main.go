package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valency/foxcoin/core"
	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/p2p"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/rpc"
	"github.com/valency/foxcoin/utils"
)

const (
	metricsNamespace = "foxcoin"
	dialTimeout      = 15 * time.Second
)

var logger = utils.GetStdoutLog()

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	v := newViper()
	var configFile string

	cmd := &cobra.Command{
		Use:           "foxcoin",
		Short:         "foxcoin node: an in-memory chain kept in sync with its peers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), conf)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (json, toml or yaml)")
	addFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the protocol version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("foxcoin protocol v%d, genesis %s\n", params.CurrentCodeVersion, blockchain.Genesis().Hash)
		},
	})
	return cmd
}

func run(ctx context.Context, conf *config) error {
	if err := utils.SetLogOutput(os.Stdout, conf.LogFormat); err != nil {
		return err
	}
	level, err := utils.ParseLogLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	utils.SetLogLevel(level)

	// load the key
	privKey, err := crypto.LoadNodeKey(conf.Key.Type, conf.Key.Path)
	if err != nil {
		return fmt.Errorf("load node key failed:%v", err)
	}
	logger.Info("node id %s\n", crypto.PrivKeyToID(privKey))

	// p2p node
	node, err := p2p.NewNode(&p2p.Config{
		ListenIP:    conf.IP,
		ListenPort:  conf.P2PPort,
		MaxPeerNum:  conf.MaxPeers,
		PrivKey:     privKey,
		GenesisHash: blockchain.Genesis().Hash,
	})
	if err != nil {
		return err
	}

	// core module
	coreInstance := core.NewCore(&core.Config{
		Node:    node,
		Metrics: core.PrometheusMetrics(metricsNamespace),
	})
	if err := node.Start(); err != nil {
		coreInstance.Stop()
		return err
	}

	// local http server
	httpServer := rpc.NewServer(&rpc.Config{
		Host:               conf.HTTPHost,
		Port:               conf.HTTPPort,
		C:                  coreInstance,
		CORSAllowedOrigins: conf.HTTP.CORSAllowedOrigins,
	})
	if err := httpServer.Start(); err != nil {
		coreInstance.Stop()
		node.Stop()
		return fmt.Errorf("http server listen failed:%v", err)
	}

	// waiting gracefully shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		connectPeers(gctx, coreInstance, conf.Peers)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infoln("Quiting......")
		httpServer.Stop()
		coreInstance.Stop()
		node.Stop()
		logger.Infoln("Bye!")
		return nil
	})
	return g.Wait()
}

// connectPeers dials the initial peers; a failed one is only logged
func connectPeers(ctx context.Context, c *core.Core, peers []string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, address := range peers {
		address := address
		g.Go(func() error {
			dialCtx, cancel := context.WithTimeout(gctx, dialTimeout)
			defer cancel()
			if err := c.AddPeer(dialCtx, address); err != nil {
				logger.Warn("connect to peer %s failed: %v\n", address, err)
			}
			return nil
		})
	}
	g.Wait()
}
