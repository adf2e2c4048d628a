package cp

type queryMsg struct {
	Type CoreMsgType `json:"type"`
}

// QueryLatest asks the peer for its tip
type QueryLatest struct{}

func NewQueryLatest() *QueryLatest {
	return &QueryLatest{}
}

func (q *QueryLatest) Type() CoreMsgType {
	return MsgQueryLatest
}

func (q *QueryLatest) Marshal() []byte {
	return marshal(&queryMsg{Type: MsgQueryLatest})
}

// QueryAll asks the peer for its whole chain
type QueryAll struct{}

func NewQueryAll() *QueryAll {
	return &QueryAll{}
}

func (q *QueryAll) Type() CoreMsgType {
	return MsgQueryAll
}

func (q *QueryAll) Marshal() []byte {
	return marshal(&queryMsg{Type: MsgQueryAll})
}
