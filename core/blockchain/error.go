package blockchain

import (
	"errors"
	"fmt"
)

var ErrNilBlock = errors.New("nil block")

var ErrEmptyChain = errors.New("empty chain")

var ErrGenesisMismatch = errors.New("first block is not the genesis block")

type ErrIndexMismatch struct {
	Expect uint64
	Got    uint64
}

func (e ErrIndexMismatch) Error() string {
	return fmt.Sprintf("invalid index %d, expect %d", e.Got, e.Expect)
}

type ErrPrevHashMismatch struct {
	Expect string
	Got    string
}

func (e ErrPrevHashMismatch) Error() string {
	return fmt.Sprintf("invalid prev_hash %s, expect %s", e.Got, e.Expect)
}

type ErrHashMismatch struct {
	Expect string
	Got    string
}

func (e ErrHashMismatch) Error() string {
	return fmt.Sprintf("invalid hash %s, expect %s", e.Got, e.Expect)
}

type ErrChainNotLonger struct {
	Current  int
	Received int
}

func (e ErrChainNotLonger) Error() string {
	return fmt.Sprintf("received chain of %d blocks is not longer than current %d",
		e.Received, e.Current)
}

// RejectReason classifies a validation error, used as a metrics label
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyChain):
		return "empty"
	case errors.Is(err, ErrGenesisMismatch):
		return "genesis"
	case errors.Is(err, ErrNilBlock):
		return "nil"
	case errors.As(err, &ErrIndexMismatch{}):
		return "index"
	case errors.As(err, &ErrPrevHashMismatch{}):
		return "prev_hash"
	case errors.As(err, &ErrHashMismatch{}):
		return "hash"
	case errors.As(err, &ErrChainNotLonger{}):
		return "not_longer"
	}
	return "other"
}
