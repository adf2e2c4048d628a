package crypto

import (
	"encoding/base32"
	"errors"

	"github.com/btcsuite/btcd/btcec"

	"github.com/valency/foxcoin/utils"
)

var (
	base32Codec = base32.StdEncoding.WithPadding(base32.NoPadding)

	ErrInvalidNodeID = errors.New("invalid node id")
	ErrInvalidSig    = errors.New("invalid signature")
)

// A node ID is base32(compressed secp256k1 public key).
// It's only a readable form of the key, so the remote key can be recovered
// from the ID carried in the handshake.

// PubKeyToID returns a node id from the public key
func PubKeyToID(pubKey *btcec.PublicKey) string {
	return base32Codec.EncodeToString(pubKey.SerializeCompressed())
}

// PrivKeyToID returns a node id from the private key
func PrivKeyToID(privKey *btcec.PrivateKey) string {
	return PubKeyToID(privKey.PubKey())
}

// IDToPubKey parses the public key inside a node id
func IDToPubKey(id string) (*btcec.PublicKey, error) {
	raw, err := base32Codec.DecodeString(id)
	if err != nil || len(raw) != btcec.PubKeyBytesLenCompressed {
		return nil, ErrInvalidNodeID
	}

	pubKey, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, ErrInvalidNodeID
	}
	return pubKey, nil
}

// ShortID is the node id prefix used in logs
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Sign signs sha256(msg) and returns the DER signature in hex
func Sign(privKey *btcec.PrivateKey, msg []byte) (string, error) {
	sig, err := privKey.Sign(utils.Hash(msg))
	if err != nil {
		return "", err
	}
	return utils.ToHex(sig.Serialize()), nil
}

// VerifyByID checks a hex DER signature of sha256(msg) against the key of the node id
func VerifyByID(id string, msg []byte, hexSig string) error {
	pubKey, err := IDToPubKey(id)
	if err != nil {
		return err
	}

	rawSig, err := utils.FromHex(hexSig)
	if err != nil {
		return ErrInvalidSig
	}
	sig, err := btcec.ParseDERSignature(rawSig, btcec.S256())
	if err != nil {
		return ErrInvalidSig
	}
	if !sig.Verify(utils.Hash(msg), pubKey) {
		return ErrInvalidSig
	}
	return nil
}
