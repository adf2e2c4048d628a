package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec"
	"github.com/howeyc/gopass"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/scrypt"

	"github.com/valency/foxcoin/utils"
)

/*
The skey is the sealed node private key stored on the disk.
The aes key used to encrypt the private key is derived from a passphrase
by scrypt; the file is a JSON document:

	{
	  "version": 1,
	  "kdfName": "scrypt",
	  "kdf": {"dkLen":32,"n":262144,"p":1,"r":8,"salt":"<hex>"},
	  "cryptoName": "aes-256-gcm",
	  "crypto": {"cipherText":"<hex>","nonce":"<hex>"}
	}
*/

const (
	SealKeyType = 2
	SealKey     = "node.skey"

	version1      = 1
	kdfName       = "scrypt"
	dkLen         = 32
	scryptP       = 1
	scryptR       = 8
	saltLen       = 32
	cryptoName    = "aes-256-gcm"
	minPassphrase = 8
)

var (
	scryptN = 262144

	// readPassphrase reads one passphrase line from the terminal
	readPassphrase = gopass.GetPasswdMasked

	json = jsoniter.ConfigCompatibleWithStandardLibrary

	ErrPassphraseMismatch = errors.New("inconsistent passphrase input")
)

type skeyJSON struct {
	Version    int             `json:"version"`
	KdfName    string          `json:"kdfName"`
	KDF        scryptKDF       `json:"kdf"`
	CryptoName string          `json:"cryptoName"`
	Crypto     aes256GcmCrypto `json:"crypto"`
}

type scryptKDF struct {
	DkLen int    `json:"dkLen"`
	N     int    `json:"n"`
	P     int    `json:"p"`
	R     int    `json:"r"`
	Salt  string `json:"salt"`
}

type aes256GcmCrypto struct {
	CipherText string `json:"cipherText"`
	Nonce      string `json:"nonce"`
}

// NewSKey generates a node key, then seals and saves it in dir
func NewSKey(dir string) (*btcec.PrivateKey, error) {
	keyFile := filepath.Join(dir, SealKey)
	if err := checkBeforeNewKey(dir, keyFile); err != nil {
		return nil, err
	}

	privKey, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}

	if err = sealAndSave(privKey, keyFile); err != nil {
		return nil, err
	}
	return privKey, nil
}

// SealPKey seals the pkey in pkeyDir and saves it in outputDir
func SealPKey(pkeyDir string, outputDir string) error {
	keyFile := filepath.Join(outputDir, SealKey)
	if err := checkBeforeNewKey(outputDir, keyFile); err != nil {
		return err
	}

	privKey, err := RestorePKey(pkeyDir)
	if err != nil {
		return err
	}
	return sealAndSave(privKey, keyFile)
}

// ReNewSKey seals the key of an existing skey again with a new passphrase
func ReNewSKey(oldDir string, newDir string) error {
	if err := utils.AccessCheck(newDir); err != nil {
		return err
	}

	privKey, err := RestoreSKey(oldDir)
	if err != nil {
		return err
	}
	return sealAndSave(privKey, filepath.Join(newDir, SealKey))
}

// RestoreSKey asks for the passphrase and unseals the skey in dir
func RestoreSKey(dir string) (*btcec.PrivateKey, error) {
	content, err := readKeyFile(filepath.Join(dir, SealKey))
	if err != nil {
		return nil, err
	}

	ks, err := parseSKey(content)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(os.Stderr, "Input your passphrase to decrypt the node key:")
	pass, err := readPassphrase()
	if err != nil {
		return nil, fmt.Errorf("get passphrase: %w", err)
	}

	return unseal(pass, ks)
}

func sealAndSave(privKey *btcec.PrivateKey, keyFile string) error {
	pass, err := newPassphrase()
	if err != nil {
		return err
	}

	sealed, err := seal(pass, privKey.Serialize())
	if err != nil {
		return err
	}
	return saveOnDisk(sealed, keyFile)
}

func newPassphrase() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Input your passphrase (please remember it):")
	pass1, err := readPassphrase()
	if err != nil {
		return nil, fmt.Errorf("get passphrase: %w", err)
	}
	if len(pass1) < minPassphrase {
		return nil, fmt.Errorf("passphrase should be at least %d characters", minPassphrase)
	}

	fmt.Fprint(os.Stderr, "Repeat it:")
	pass2, err := readPassphrase()
	if err != nil {
		return nil, fmt.Errorf("get passphrase: %w", err)
	}
	if !bytes.Equal(pass1, pass2) {
		return nil, ErrPassphraseMismatch
	}
	return pass1, nil
}

func seal(passphrase []byte, key []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	dk, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, dkLen)
	if err != nil {
		return nil, err
	}

	aesgcm, err := newGCM(dk)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ks := &skeyJSON{
		Version: version1,
		KdfName: kdfName,
		KDF: scryptKDF{
			DkLen: dkLen,
			N:     scryptN,
			P:     scryptP,
			R:     scryptR,
			Salt:  utils.ToHex(salt),
		},
		CryptoName: cryptoName,
		Crypto: aes256GcmCrypto{
			CipherText: utils.ToHex(aesgcm.Seal(nil, nonce, key, nil)),
			Nonce:      utils.ToHex(nonce),
		},
	}
	return json.MarshalIndent(ks, "", "  ")
}

func parseSKey(content []byte) (*skeyJSON, error) {
	ks := &skeyJSON{}
	if err := json.Unmarshal(content, ks); err != nil {
		return nil, fmt.Errorf("decode sealed key: %w", err)
	}

	switch {
	case ks.Version != version1:
		return nil, fmt.Errorf("unrecognized version: %d", ks.Version)
	case ks.KdfName != kdfName:
		return nil, fmt.Errorf("unrecognized kdf: %s", ks.KdfName)
	case ks.CryptoName != cryptoName:
		return nil, fmt.Errorf("unrecognized crypto: %s", ks.CryptoName)
	case ks.KDF.DkLen != dkLen:
		return nil, fmt.Errorf("unrecognized dkLen: %d", ks.KDF.DkLen)
	case ks.KDF.N != scryptN || ks.KDF.P != scryptP || ks.KDF.R != scryptR:
		return nil, fmt.Errorf("unrecognized scrypt parameters n=%d r=%d p=%d",
			ks.KDF.N, ks.KDF.R, ks.KDF.P)
	case len(ks.KDF.Salt) == 0 || len(ks.Crypto.CipherText) == 0 || len(ks.Crypto.Nonce) == 0:
		return nil, errors.New("the essential content is missed")
	}
	return ks, nil
}

func unseal(pass []byte, ks *skeyJSON) (*btcec.PrivateKey, error) {
	salt, err := utils.FromHex(ks.KDF.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := utils.FromHex(ks.Crypto.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	cipherText, err := utils.FromHex(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("decode cipher text: %w", err)
	}

	dk, err := scrypt.Key(pass, salt, ks.KDF.N, ks.KDF.R, ks.KDF.P, ks.KDF.DkLen)
	if err != nil {
		return nil, err
	}
	aesgcm, err := newGCM(dk)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, errors.New("sealed key has a wrong nonce size")
	}

	plainText, err := aesgcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, errors.New("wrong passphrase or damaged key file")
	}
	if len(plainText) != btcec.PrivKeyBytesLen {
		return nil, errors.New("sealed key has a wrong length")
	}

	privKey, _ := btcec.PrivKeyFromBytes(btcec.S256(), plainText)
	return privKey, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
