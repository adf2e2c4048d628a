package params

type CodeVersion uint16

const (
	// NodeVersionV1 starts from v1.0.0
	NodeVersionV1 = CodeVersion(1)
)

var CurrentCodeVersion = NodeVersionV1
var MinimizeVersionRequired = NodeVersionV1

////////////////////////////////////////////////////////////////

const (
	DefaultP2PPort  = 18111
	DefaultHTTPPort = 8111
	DefaultMaxPeers = 32

	// MaxBlockDataSize bounds the canonical data of a locally mined block, 64KB
	MaxBlockDataSize = 64 * 1024

	// MaxEncodedBlockSize bounds one block inside a chain response. The block
	// array travels as a JSON string: escaping at most doubles canonical data,
	// the rest of the block stays under 1KB.
	MaxEncodedBlockSize = 2*MaxBlockDataSize + 1024

	// FullSyncBlocks is the number of blocks of any size a single chain
	// response is sure to carry; chains of smaller blocks go further.
	FullSyncBlocks = 512

	// MaxMessageSize bounds a single protocol frame both ways, about 64MB.
	// A node never sends a whole chain over it, the peer would drop the link.
	MaxMessageSize = FullSyncBlocks*MaxEncodedBlockSize + 1024

	// MaxRequestBodySize bounds the body of a mine request, its data may
	// shrink on the way to the canonical form
	MaxRequestBodySize = 4 * MaxBlockDataSize
)
