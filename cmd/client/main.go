package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valency/foxcoin/core/blockchain"
	"github.com/valency/foxcoin/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Printf("Failed:%v.\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := newViper()
	var client *httpClient

	root := &cobra.Command{
		Use:           "client",
		Short:         "talk to the http api of a foxcoin node",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			conf, err := loadConfig(v)
			if err != nil {
				return err
			}
			client = newHTTPClient(conf)
			return nil
		},
	}
	addFlags(root.PersistentFlags())

	var latest bool
	blocks := &cobra.Command{
		Use:   "blocks",
		Short: "print the chain of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.listBlocks(cmd.Context())
			if err != nil {
				return err
			}
			if latest && len(result) != 0 {
				result = result[len(result)-1:]
			}
			for _, b := range result {
				printBlock(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
	blocks.Flags().BoolVar(&latest, "latest", false, "print the latest block only")

	var dataFile string
	mine := &cobra.Command{
		Use:   "mine [json]",
		Short: "mine a block holding the json data, read from --file when given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := mineInput(args, dataFile)
			if err != nil {
				return err
			}
			data, err := blockchain.ParseData(raw)
			if err != nil {
				return err
			}

			block, err := client.mineBlock(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ">>> mined")
			printBlock(cmd.OutOrStdout(), block)
			return nil
		},
	}
	mine.Flags().StringVarP(&dataFile, "file", "f", "", "json file holding the block data")

	peers := &cobra.Command{
		Use:   "peers",
		Short: "print the connected peers of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.listPeers(cmd.Context())
			if err != nil {
				return err
			}
			for i, p := range result {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d]\t%s\n", i, p)
			}
			return nil
		},
	}

	addPeer := &cobra.Command{
		Use:   "addpeer <ws://host:port>",
		Short: "ask the node to connect to a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.addPeer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), ">>> connected to %s\n", args[0])
			return nil
		},
	}

	root.AddCommand(blocks, mine, peers, addPeer)
	return root
}

func mineInput(args []string, file string) ([]byte, error) {
	if len(file) != 0 {
		if len(args) != 0 {
			return nil, fmt.Errorf("give the data either inline or by --file")
		}
		if err := utils.AccessCheck(file); err != nil {
			return nil, err
		}
		return os.ReadFile(file)
	}
	if len(args) == 0 || len(strings.TrimSpace(args[0])) == 0 {
		return nil, fmt.Errorf("missing block data")
	}
	return []byte(args[0]), nil
}
