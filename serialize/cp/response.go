package cp

import (
	"fmt"

	"github.com/valency/foxcoin/core/blockchain"
)

type responseMsg struct {
	Type CoreMsgType `json:"type"`
	Data string      `json:"data"`
}

// ResponseChain carries a tip (one block) or a whole chain
type ResponseChain struct {
	Blocks []*blockchain.Block
}

func NewResponseChain(blocks []*blockchain.Block) *ResponseChain {
	return &ResponseChain{
		Blocks: blocks,
	}
}

// UnmarshalResponseChain decodes the data of a ResponseChain head
func UnmarshalResponseChain(head *Head) (*ResponseChain, error) {
	if len(head.Data) == 0 || string(head.Data) == "null" {
		return nil, ErrBrokenData{info: "response without data"}
	}

	raw := []byte(head.Data)
	if head.Data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(head.Data, &encoded); err != nil {
			return nil, ErrBrokenData{info: err.Error()}
		}
		raw = []byte(encoded)
	}

	var blocks []*blockchain.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, ErrBrokenData{info: fmt.Sprintf("decode blocks: %v", err)}
	}
	if len(blocks) == 0 {
		return nil, ErrBrokenData{info: "response without blocks"}
	}
	for i, b := range blocks {
		if b == nil {
			return nil, ErrBrokenData{info: fmt.Sprintf("null block at %d", i)}
		}
	}

	return NewResponseChain(blocks), nil
}

func (r *ResponseChain) Type() CoreMsgType {
	return MsgResponseChain
}

func (r *ResponseChain) Marshal() []byte {
	blocks := marshal(r.Blocks)
	if blocks == nil {
		return nil
	}
	return marshal(&responseMsg{Type: MsgResponseChain, Data: string(blocks)})
}

func (r *ResponseChain) String() string {
	if len(r.Blocks) == 0 {
		return "ResponseChain []"
	}
	return fmt.Sprintf("ResponseChain %d blocks, last %v", len(r.Blocks), r.Blocks[len(r.Blocks)-1])
}
