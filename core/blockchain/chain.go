package blockchain

import (
	"sync"

	"github.com/valency/foxcoin/utils"
)

var logger = utils.NewLogger("chain")

// Chain holds the accepted chain of the node.
// TryAppend and Replace are the only ways to change it, each one runs its
// read-validate-write sequence under the write lock.
type Chain struct {
	lock   sync.RWMutex
	blocks []*Block
}

// NewChain returns a chain holding only the genesis block
func NewChain() *Chain {
	return &Chain{
		blocks: []*Block{Genesis()},
	}
}

// Latest returns the tip of the chain
func (c *Chain) Latest() *Block {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks including the genesis block
func (c *Chain) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.blocks)
}

// Blocks returns a snapshot of the chain
func (c *Chain) Blocks() []*Block {
	c.lock.RLock()
	defer c.lock.RUnlock()

	result := make([]*Block, len(c.blocks))
	copy(result, c.blocks)
	return result
}

// TryAppend appends candidate if it validly follows the tip,
// otherwise the chain is left untouched and the validation error returned
func (c *Chain) TryAppend(candidate *Block) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	latest := c.blocks[len(c.blocks)-1]
	if err := IsValidNext(candidate, latest); err != nil {
		return err
	}

	c.blocks = append(c.blocks, candidate)
	logger.Debug("append block %v", candidate)
	return nil
}

// Replace swaps the whole chain for newChain if newChain is valid and
// strictly longer, otherwise the chain is left untouched
func (c *Chain) Replace(newChain []*Block) error {
	// validity of newChain does not depend on the current chain
	if err := IsValidChain(newChain); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if len(newChain) <= len(c.blocks) {
		return ErrChainNotLonger{Current: len(c.blocks), Received: len(newChain)}
	}

	blocks := make([]*Block, len(newChain))
	copy(blocks, newChain)
	c.blocks = blocks
	logger.Info("chain replaced, %d blocks, tip %v", len(blocks), blocks[len(blocks)-1])
	return nil
}
