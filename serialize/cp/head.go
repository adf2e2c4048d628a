package cp

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Head is the envelope shared by every message
type Head struct {
	Type *CoreMsgType        `json:"type"`
	Data jsoniter.RawMessage `json:"data,omitempty"`
}

func UnmarshalHead(data []byte) (*Head, error) {
	result := &Head{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, ErrBrokenData{info: err.Error()}
	}
	if result.Type == nil {
		return nil, ErrBrokenData{info: "missing type"}
	}
	return result, nil
}

func (h *Head) String() string {
	if h.Type == nil {
		return "Type <nil>"
	}
	return fmt.Sprintf("Type %d", *h.Type)
}
