package blockchain

import "fmt"

// IsValidNext checks candidate may directly follow previous.
// It returns nil if valid, otherwise ErrIndexMismatch, ErrPrevHashMismatch
// or ErrHashMismatch. The data is never inspected.
func IsValidNext(candidate, previous *Block) error {
	if candidate == nil || previous == nil {
		return ErrNilBlock
	}

	if candidate.Index != previous.Index+1 {
		return ErrIndexMismatch{Expect: previous.Index + 1, Got: candidate.Index}
	}

	if candidate.PrevHash == nil || *candidate.PrevHash != previous.Hash {
		return ErrPrevHashMismatch{Expect: previous.Hash, Got: candidate.PrevHashString()}
	}

	if h := candidate.CalculateHash(); h != candidate.Hash {
		return ErrHashMismatch{Expect: h, Got: candidate.Hash}
	}

	return nil
}

// IsValidChain checks blocks starts with the genesis block and every block
// validly follows its predecessor; it stops at the first failure
func IsValidChain(blocks []*Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	if !IsGenesis(blocks[0]) {
		return ErrGenesisMismatch
	}

	for i := 1; i < len(blocks); i++ {
		if err := IsValidNext(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("block at position %d: %w", i, err)
		}
	}
	return nil
}
