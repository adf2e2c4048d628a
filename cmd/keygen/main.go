package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Printf("error happen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var source, output string

	root := &cobra.Command{
		Use:           "keygen",
		Short:         "generate and convert foxcoin node keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output directory")
	root.PersistentFlags().StringVarP(&source, "source", "s", "", "source key directory")

	checkOutput := func(cmd *cobra.Command, args []string) error {
		if len(output) == 0 {
			return fmt.Errorf("output path should not be empty")
		}
		return utils.AccessCheck(output)
	}
	checkBoth := func(cmd *cobra.Command, args []string) error {
		if err := checkOutput(cmd, args); err != nil {
			return err
		}
		if len(source) == 0 {
			return fmt.Errorf("source input path should not be empty")
		}
		return utils.AccessCheck(source)
	}

	root.AddCommand(
		&cobra.Command{
			Use:     "skey",
			Short:   "generate a sealed key (" + crypto.SealKey + ")",
			Args:    cobra.NoArgs,
			PreRunE: checkOutput,
			RunE: func(cmd *cobra.Command, args []string) error {
				privKey, err := crypto.NewSKey(output)
				if err != nil {
					return err
				}
				fmt.Printf("node id %s\n", crypto.PrivKeyToID(privKey))
				return finish(output)
			},
		},
		&cobra.Command{
			Use:     "pkey",
			Short:   "generate a plain key (" + crypto.PlainKey + ")",
			Args:    cobra.NoArgs,
			PreRunE: checkOutput,
			RunE: func(cmd *cobra.Command, args []string) error {
				privKey, err := crypto.NewPKey(output)
				if err != nil {
					return err
				}
				fmt.Printf("node id %s\n", crypto.PrivKeyToID(privKey))
				return finish(output)
			},
		},
		&cobra.Command{
			Use:     "open",
			Short:   "generate a plain key from a sealed key",
			Args:    cobra.NoArgs,
			PreRunE: checkBoth,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := crypto.OpenSKey(source, output); err != nil {
					return err
				}
				return finish(output)
			},
		},
		&cobra.Command{
			Use:     "seal",
			Short:   "generate a sealed key from a plain key",
			Args:    cobra.NoArgs,
			PreRunE: checkBoth,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := crypto.SealPKey(source, output); err != nil {
					return err
				}
				return finish(output)
			},
		},
		&cobra.Command{
			Use:     "renew",
			Short:   "seal the key of a sealed key with a new passphrase",
			Args:    cobra.NoArgs,
			PreRunE: checkBoth,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := crypto.ReNewSKey(source, output); err != nil {
					return err
				}
				return finish(output)
			},
		},
		&cobra.Command{
			Use:   "id",
			Short: "print the node id of the key in the source directory",
			Args:  cobra.NoArgs,
			PreRunE: func(cmd *cobra.Command, args []string) error {
				if len(source) == 0 {
					return fmt.Errorf("source input path should not be empty")
				}
				return utils.AccessCheck(source)
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				keyType := crypto.PlainKeyType
				if _, err := os.Stat(filepath.Join(source, crypto.SealKey)); err == nil {
					keyType = crypto.SealKeyType
				}
				privKey, err := crypto.LoadNodeKey(keyType, source)
				if err != nil {
					return err
				}
				fmt.Println(crypto.PrivKeyToID(privKey))
				return nil
			},
		},
	)
	return root
}

func finish(output string) error {
	fmt.Printf("Finish, checkout .*key file in the %s\n", output)
	return nil
}
