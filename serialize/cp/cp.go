package cp

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/valency/foxcoin/utils"
)

/*
Core protocol messages are JSON text frames:

	{"type":0}                  QueryLatest
	{"type":1}                  QueryAll
	{"type":2,"data":"[...]"}   ResponseChain

The "data" of a ResponseChain is a JSON string holding the encoded block
array; a bare JSON array is accepted on receive as well.

Block
	{"index":1,"prev_hash":"..."|null,"timestamp":1451606400,"data":<json>,"hash":"..."}
*/

type CoreMsgType = int

const (
	MsgQueryLatest   CoreMsgType = 0
	MsgQueryAll      CoreMsgType = 1
	MsgResponseChain CoreMsgType = 2
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var logger = utils.NewLogger("cp")

// ErrBrokenData means the frame can't be decoded
type ErrBrokenData struct {
	info string
}

func (e ErrBrokenData) Error() string {
	return "broken message: " + e.info
}

// ErrUnknownType means the frame carries a type this node doesn't know
type ErrUnknownType struct {
	Type CoreMsgType
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown message type %d", e.Type)
}

// IsMalformed reports whether err comes from decoding a bad frame
func IsMalformed(err error) bool {
	return errors.As(err, &ErrBrokenData{}) || errors.As(err, &ErrUnknownType{})
}

// Message is one of *QueryLatest, *QueryAll or *ResponseChain
type Message interface {
	Type() CoreMsgType
	Marshal() []byte
}

// Unmarshal decodes a frame into its concrete message
func Unmarshal(data []byte) (Message, error) {
	head, err := UnmarshalHead(data)
	if err != nil {
		return nil, err
	}

	switch *head.Type {
	case MsgQueryLatest:
		return NewQueryLatest(), nil
	case MsgQueryAll:
		return NewQueryAll(), nil
	case MsgResponseChain:
		resp, err := UnmarshalResponseChain(head)
		if err != nil {
			return nil, err
		}
		return resp, nil
	default:
		return nil, ErrUnknownType{Type: *head.Type}
	}
}

func marshal(v interface{}) []byte {
	result, err := json.Marshal(v)
	if err != nil {
		logger.Warn("marshal %T failed: %v", v, err)
		return nil
	}
	return result
}
