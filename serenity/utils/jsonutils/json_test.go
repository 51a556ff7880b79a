package jsonutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Mood  string   `json:"mood"`
	Tags  []string `json:"tags"`
	Level float64  `json:"level"`
}

func TestUnmarshalObjectStrict(t *testing.T) {
	var p payload
	err := UnmarshalObject(`{"mood":"calm","tags":["sleep"],"level":2}`, &p)
	require.NoError(t, err)
	assert.Equal(t, "calm", p.Mood)
	assert.Equal(t, []string{"sleep"}, p.Tags)
	assert.Equal(t, 2.0, p.Level)
}

func TestUnmarshalObjectWrappedInProse(t *testing.T) {
	input := "Sure, here is the analysis you asked for:\n```json\n{\"mood\":\"anxious\",\"level\":3}\n```\nLet me know if you need more."
	var p payload
	err := UnmarshalObject(input, &p)
	require.NoError(t, err)
	assert.Equal(t, "anxious", p.Mood)
	assert.Equal(t, 3.0, p.Level)
}

func TestUnmarshalObjectBracesInsideStrings(t *testing.T) {
	input := `prefix {"mood":"ok {not a brace}","level":1} suffix`
	var p payload
	err := UnmarshalObject(input, &p)
	require.NoError(t, err)
	assert.Equal(t, "ok {not a brace}", p.Mood)
}

func TestUnmarshalObjectFailsClosed(t *testing.T) {
	var p payload
	assert.Error(t, UnmarshalObject("no json here at all", &p))
	assert.Error(t, UnmarshalObject("", &p))
	assert.Error(t, UnmarshalObject("{unterminated", &p))
}

func TestExtractObjectFirstBalanced(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractObject(`{"a":1} {"b":2}`))
	assert.Equal(t, "", ExtractObject("nothing"))
	assert.Equal(t, `{"outer":{"inner":true}}`, ExtractObject(`x {"outer":{"inner":true}} y`))
}

func TestToJSON(t *testing.T) {
	out := ToJSON(map[string]int{"a": 1})
	assert.Contains(t, out, `"a": 1`)
	assert.Equal(t, "", ToJSON(make(chan int)))
}
