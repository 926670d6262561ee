package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGlassesAnswer(t *testing.T) {
	got, err := ParseGlassesAnswer(`{"glasses_detected": true}`)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = ParseGlassesAnswer("```json\n{\"glasses_detected\": false}\n```")
	require.NoError(t, err)
	assert.False(t, got)

	_, err = ParseGlassesAnswer("I think so")
	assert.Error(t, err)

	_, err = ParseGlassesAnswer(`{"answer": "yes"}`)
	assert.Error(t, err)
}

func TestSplitDataURL(t *testing.T) {
	mime, payload := splitDataURL("data:image/png;base64,AAAA")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "AAAA", payload)

	mime, payload = splitDataURL("BBBB")
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, "BBBB", payload)
}
