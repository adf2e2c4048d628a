package blockchain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenesis(t *testing.T) {
	g := Genesis()

	assert.Equal(t, uint64(0), g.Index)
	assert.Nil(t, g.PrevHash)
	assert.Equal(t, float64(genesisTimestamp), g.Timestamp)
	assert.Equal(t, g.CalculateHash(), g.Hash, "genesis hash must recompute")
	assert.Len(t, g.Hash, 64)
	assert.Equal(t, strings.ToLower(g.Hash), g.Hash)
	assert.True(t, IsGenesis(g))

	// callers get copies, the constant stays intact
	g.Data = MustParseData(`"changed"`)
	assert.False(t, IsGenesis(g))
	assert.True(t, IsGenesis(Genesis()))
}

func TestComputeHashDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		index := rapid.Uint64().Draw(t, "index").(uint64)
		prev := rapid.String().Draw(t, "prev").(string)
		ts := rapid.Float64Range(0, 4e9).Draw(t, "timestamp").(float64)
		text := rapid.String().Draw(t, "data").(string)

		data, err := NewData(text)
		if err != nil {
			t.Fatal(err)
		}
		first := ComputeHash(index, &prev, ts, data)
		prevCopy := prev
		second := ComputeHash(index, &prevCopy, ts, append(Data(nil), data...))
		if first != second {
			t.Fatalf("hash not repeatable: %s != %s", first, second)
		}
	})
}

func TestComputeHashKnownValue(t *testing.T) {
	// sha256("0" + "" + "1451606400" + "null")
	assert.Equal(t,
		ComputeHash(0, nil, 1451606400, nil),
		ComputeHash(0, nil, 1451606400, MustParseData("null")))

	prev := "abc"
	assert.NotEqual(t,
		ComputeHash(1, &prev, 10, MustParseData(`[1]`)),
		ComputeHash(1, &prev, 10.5, MustParseData(`[1]`)))
}

func TestNextBlock(t *testing.T) {
	g := Genesis()
	data := MustParseData(`{"amount": 5}`)
	now := time.Unix(1700000000, 250*int64(time.Millisecond))

	b := NextBlockAt(g, data, now)
	assert.Equal(t, uint64(1), b.Index)
	require.NotNil(t, b.PrevHash)
	assert.Equal(t, g.Hash, *b.PrevHash)
	assert.Equal(t, 1700000000.25, b.Timestamp)
	assert.Equal(t, b.CalculateHash(), b.Hash)
	assert.NoError(t, IsValidNext(b, g))
}

func TestDataCanonical(t *testing.T) {
	a, err := ParseData([]byte(`{ "b": 1,  "a": [ 2, {"d": 1, "c": 10000000.0} ] }`))
	require.NoError(t, err)
	b, err := ParseData([]byte(`{"a":[2,{"c":10000000.0,"d":1}],"b":1}`))
	require.NoError(t, err)

	assert.Equal(t, `{"a":[2,{"c":10000000.0,"d":1}],"b":1}`, a.String())
	assert.True(t, a.Equal(b))

	again, err := ParseData(a)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	_, err = ParseData([]byte(`{"a":`))
	assert.Error(t, err)

	empty, err := ParseData(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", empty.String())
}

func TestDataRefusesUnstableEncoding(t *testing.T) {
	for _, raw := range []string{
		"\"\xff\"",
		"{\"name\":\"a\xc3\"}",
		`{"big":1e400}`,
		`[-1e309]`,
	} {
		_, err := ParseData([]byte(raw))
		assert.Error(t, err, "%q", raw)
	}

	// escapes decode to valid text and encode back the same way every time
	d, err := ParseData([]byte(`["<tag>","\u00e9",1e300]`))
	require.NoError(t, err)
	again, err := ParseData(d)
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestBlockJSONRoundTrip(t *testing.T) {
	b := NextBlockAt(Genesis(), MustParseData(`[{"to":"x","v":1}]`), time.Unix(1600000000, 0))

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	decoded := &Block{}
	require.NoError(t, json.Unmarshal(raw, decoded))
	assert.True(t, b.Equal(decoded))
	assert.NoError(t, IsValidNext(decoded, Genesis()))

	graw, err := json.Marshal(Genesis())
	require.NoError(t, err)
	assert.Contains(t, string(graw), `"prev_hash":null`)
}
