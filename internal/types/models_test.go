package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerJSON(t *testing.T) {
	var answers map[string]Answer
	require.NoError(t, json.Unmarshal([]byte(`{"a":4.5,"b":"jelas","c":null}`), &answers))

	assert.Equal(t, NumberAnswer(4.5), answers["a"])
	assert.Equal(t, TextAnswer("jelas"), answers["b"])
	assert.True(t, answers["c"].Missing)
	_, ok := answers["c"].Number()
	assert.False(t, ok, "null is not a zero rating")

	assert.Equal(t, map[string]Answer{"a": NumberAnswer(4.5), "b": TextAnswer("jelas")}, CompactAnswers(answers))

	var bad Answer
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}
