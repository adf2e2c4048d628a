package blockchain

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/valency/foxcoin/utils"
)

const (
	genesisTimestamp = 1451606400

	genesisPayload = `[{
		"source": null,
		"target": "MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQCKVKf8Nf/y78G/BglXHutS/kRdzryPbpg9hRgmBh+hNyFjispFyN1vlM0BLlQyMA64TACN//7nO0JcrDsEJbpHRf1DdepzBv1zx4FFaE62Wvj2AYv26FfX8mTfCat2lj4wkOsDbN94izcJaT8XC5hZh9d3RZ34bhqSTcY3Fc4D0wIDAQAB",
		"timestamp": 1451606100,
		"amount": 10000000.0,
		"source_balance": 0.0,
		"target_balance": 10000000.0,
		"comment": [0]
	}]`
)

// genesis is built once; Genesis() hands out copies
var genesis = newGenesis()

// Block is an immutable record of the chain. Hash is always recomputable
// from the other fields and is never trusted on its own.
type Block struct {
	Index     uint64  `json:"index"`
	PrevHash  *string `json:"prev_hash"` // nil only for the genesis block
	Timestamp float64 `json:"timestamp"`
	Data      Data    `json:"data"`
	Hash      string  `json:"hash"`
}

func newGenesis() *Block {
	b := &Block{
		Index:     0,
		PrevHash:  nil,
		Timestamp: genesisTimestamp,
		Data:      MustParseData(genesisPayload),
	}
	b.Hash = b.CalculateHash()
	return b
}

// Genesis returns the fixed first block shared by every node
func Genesis() *Block {
	return genesis.copy()
}

// IsGenesis checks b is identical to the genesis block
func IsGenesis(b *Block) bool {
	return b != nil && b.Equal(genesis)
}

// ComputeHash returns the lowercase hex sha256 of
// index + prevHash + timestamp + data, where a nil prevHash counts as ""
func ComputeHash(index uint64, prevHash *string, timestamp float64, data Data) string {
	h := sha256.New()
	io.WriteString(h, strconv.FormatUint(index, 10))
	if prevHash != nil {
		io.WriteString(h, *prevHash)
	}
	io.WriteString(h, strconv.FormatFloat(timestamp, 'f', -1, 64))
	h.Write(data.Bytes())
	return utils.ToHex(h.Sum(nil))
}

// NextBlock builds the candidate following tip, stamped with the current time
func NextBlock(tip *Block, data Data) *Block {
	return NextBlockAt(tip, data, time.Now())
}

// NextBlockAt builds the candidate following tip with the given time
func NextBlockAt(tip *Block, data Data, now time.Time) *Block {
	prevHash := tip.Hash
	b := &Block{
		Index:     tip.Index + 1,
		PrevHash:  &prevHash,
		Timestamp: utils.UnixSeconds(now),
		Data:      data,
	}
	b.Hash = b.CalculateHash()
	return b
}

func (b *Block) CalculateHash() string {
	return ComputeHash(b.Index, b.PrevHash, b.Timestamp, b.Data)
}

// PrevHashString returns the previous hash, "" for the genesis block
func (b *Block) PrevHashString() string {
	if b.PrevHash == nil {
		return ""
	}
	return *b.PrevHash
}

// Equal compares every field, data byte by byte
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	if (b.PrevHash == nil) != (other.PrevHash == nil) {
		return false
	}
	return b.Index == other.Index &&
		b.PrevHashString() == other.PrevHashString() &&
		b.Timestamp == other.Timestamp &&
		b.Data.Equal(other.Data) &&
		b.Hash == other.Hash
}

func (b *Block) String() string {
	return fmt.Sprintf("#%d %s (prev %s, %s)", b.Index, shortHash(b.Hash),
		shortHash(b.PrevHashString()), utils.TimeToString(b.Timestamp))
}

func (b *Block) copy() *Block {
	result := *b
	if b.PrevHash != nil {
		prev := *b.PrevHash
		result.PrevHash = &prev
	}
	result.Data = append(Data(nil), b.Data...)
	return &result
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if len(h) == 0 {
		return "-"
	}
	return h
}
