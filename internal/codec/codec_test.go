package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/loragw/internal/model"
)

func TestParse_Object(t *testing.T) {
	rec, err := Parse([]byte(`{"temp":21.5,"id":"n1","tags":["a","b"],"nested":{"ok":true},"none":null}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("21.5"), rec["temp"])
	assert.Equal(t, "n1", rec["id"])
	assert.Equal(t, []any{"a", "b"}, rec["tags"])
	assert.Equal(t, map[string]any{"ok": true}, rec["nested"])
	assert.Contains(t, rec, "none")
	assert.Nil(t, rec["none"])
}

func TestParse_SurroundingWhitespace(t *testing.T) {
	rec, err := Parse([]byte("  \r\n{\"a\":1}\n "))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), rec["a"])
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		`{"temp":21.5`,
		`{"temp":}`,
		`[1,2,3]`,
		`"text"`,
		`42`,
		`true`,
		`null`,
		`{"a":1}{"b":2}`,
		`{"a":1} trailing`,
		"\x00\x01\x02",
	}

	for _, in := range inputs {
		rec, err := Parse([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
		assert.Nil(t, rec, "input %q", in)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	rec := model.Record{"b": 2, "a": "x<y", "c": json.Number("1.50")}

	first, err := Serialize(rec)
	require.NoError(t, err)
	second, err := Serialize(rec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, `{"a":"x<y","b":2,"c":1.50}`, string(first))
}

func TestSerialize_RejectsUnencodable(t *testing.T) {
	_, err := Serialize(model.Record{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestParseSerializeRoundTrip(t *testing.T) {
	in := `{"temp":21.50,"hum":1e3,"big":12345678901234567890,"s":"héllo","arr":[1,{"x":null}]}`

	rec, err := Parse([]byte(in))
	require.NoError(t, err)

	out, err := Serialize(rec)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	assert.JSONEq(t, in, string(out))
}
