package blockchain

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// canonical encodes JSON values with sorted object keys, no insignificant
// whitespace and numbers kept as they were written
var canonical = jsoniter.Config{
	SortMapKeys:            true,
	UseNumber:              true,
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
}.Froze()

var nullData = []byte("null")

// Data is the opaque payload of a block: a JSON value in canonical form.
// The core never looks inside; it only feeds the bytes to the hash function.
type Data []byte

// wire decodes blocks the way a peer receiving them does
var wire = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseData validates raw JSON and returns its canonical form.
// The canonical form must read back unchanged on every node, so input whose
// encoding would not survive a trip over the wire is refused: invalid UTF-8
// and numbers a float64 can't hold.
func ParseData(raw []byte) (Data, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Data(nullData), nil
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("invalid block data: not valid UTF-8")
	}

	out, err := canonicalize(raw)
	if err != nil {
		return nil, err
	}

	again, err := canonicalize(out)
	if err != nil || !bytes.Equal(again, out) {
		return nil, fmt.Errorf("invalid block data: no stable encoding")
	}

	received := struct {
		Data jsoniter.RawMessage `json:"data"`
	}{}
	frame := append(append([]byte(`{"data":`), out...), '}')
	if err := wire.Unmarshal(frame, &received); err != nil {
		return nil, fmt.Errorf("invalid block data: %v", err)
	}
	var v interface{}
	if err := wire.Unmarshal(out, &v); err != nil {
		return nil, fmt.Errorf("invalid block data: %v", err)
	}
	return Data(out), nil
}

func canonicalize(raw []byte) ([]byte, error) {
	var v interface{}
	if err := canonical.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid block data: %v", err)
	}
	out, err := canonical.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode block data: %v", err)
	}
	return out, nil
}

// NewData encodes any JSON serializable value as block data
func NewData(v interface{}) (Data, error) {
	raw, err := canonical.Marshal(v)
	if err != nil {
		return nil, err
	}
	return ParseData(raw)
}

// MustParseData is ParseData for constants, it panics on invalid input
func MustParseData(raw string) Data {
	d, err := ParseData([]byte(raw))
	if err != nil {
		panic(err)
	}
	return d
}

// Bytes returns the canonical bytes, "null" for empty data
func (d Data) Bytes() []byte {
	if len(d) == 0 {
		return nullData
	}
	return d
}

func (d Data) Equal(other Data) bool {
	return bytes.Equal(d.Bytes(), other.Bytes())
}

func (d Data) String() string {
	return string(d.Bytes())
}

func (d Data) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}

func (d *Data) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseData(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
