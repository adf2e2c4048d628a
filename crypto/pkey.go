package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcec"

	"github.com/valency/foxcoin/utils"
)

/*
The pkey is the plain node private key stored on the disk, in hex.
*/

const (
	EphemeralKeyType = 0
	PlainKeyType     = 1
	PlainKey         = "node.pkey"
)

// LoadNodeKey returns the node key of keyType found in dir.
// An ephemeral key is generated for every start and never saved.
func LoadNodeKey(keyType int, dir string) (*btcec.PrivateKey, error) {
	switch keyType {
	case EphemeralKeyType:
		return btcec.NewPrivateKey(btcec.S256())
	case PlainKeyType:
		return RestorePKey(dir)
	case SealKeyType:
		return RestoreSKey(dir)
	}
	return nil, fmt.Errorf("unknown key type %d", keyType)
}

// NewPKey generates a node key, then saves it in dir
func NewPKey(dir string) (*btcec.PrivateKey, error) {
	keyFile := filepath.Join(dir, PlainKey)
	if err := checkBeforeNewKey(dir, keyFile); err != nil {
		return nil, err
	}

	privKey, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}

	if err = saveOnDisk([]byte(utils.ToHex(privKey.Serialize())), keyFile); err != nil {
		return nil, err
	}
	return privKey, nil
}

// OpenSKey unseals the skey in skeyDir and saves it as a pkey in outputDir
func OpenSKey(skeyDir string, outputDir string) error {
	keyFile := filepath.Join(outputDir, PlainKey)
	if err := checkBeforeNewKey(outputDir, keyFile); err != nil {
		return err
	}

	privKey, err := RestoreSKey(skeyDir)
	if err != nil {
		return err
	}

	return saveOnDisk([]byte(utils.ToHex(privKey.Serialize())), keyFile)
}

// RestorePKey reads the pkey in dir
func RestorePKey(dir string) (*btcec.PrivateKey, error) {
	hexPrivKey, err := readKeyFile(filepath.Join(dir, PlainKey))
	if err != nil {
		return nil, err
	}

	raw, err := utils.FromHex(string(hexPrivKey))
	if err != nil {
		return nil, fmt.Errorf("decode plain key: %w", err)
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, errors.New("plain key has a wrong length")
	}

	privKey, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return privKey, nil
}

func checkBeforeNewKey(dir string, file string) error {
	if err := utils.AccessCheck(dir); err != nil {
		return err
	}

	if err := utils.AccessCheck(file); err == nil {
		return fmt.Errorf("file %s already exists, "+
			"remove it before creating a new one in the same directory", file)
	}
	return nil
}

func readKeyFile(file string) ([]byte, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(string(content))), nil
}

func saveOnDisk(content []byte, file string) error {
	return os.WriteFile(file, content, 0600)
}
