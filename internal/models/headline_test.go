package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDedupeID(t *testing.T) {
	id := NewDedupeID("reuters", "Markets rally on rate cut hopes")

	parts := strings.SplitN(id, "_", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "reuters", parts[0])
	assert.Len(t, parts[1], 16)

	// Stable for the same input.
	assert.Equal(t, id, NewDedupeID("reuters", "Markets rally on rate cut hopes"))

	// Different title, different hash.
	assert.NotEqual(t, id, NewDedupeID("reuters", "Markets fall on rate cut doubts"))

	// Same title under another source is a different identity.
	assert.NotEqual(t, id, NewDedupeID("ap", "Markets rally on rate cut hopes"))

	// Case and surrounding whitespace do not change the identity.
	assert.Equal(t, id, NewDedupeID("reuters", "  MARKETS Rally on Rate Cut Hopes "))
}

func TestHeadline_Validate(t *testing.T) {
	t.Run("requires title", func(t *testing.T) {
		h := &Headline{SourceName: "reuters"}
		assert.ErrorIs(t, h.Validate(), ErrTitleRequired)
	})

	t.Run("fills dedupe id", func(t *testing.T) {
		h := &Headline{SourceName: "reuters", Title: "Storm warning issued"}
		require.NoError(t, h.Validate())
		assert.Equal(t, NewDedupeID("reuters", "Storm warning issued"), h.DedupeID)
	})

	t.Run("keeps explicit dedupe id", func(t *testing.T) {
		h := &Headline{SourceName: "reuters", Title: "Storm warning issued", DedupeID: "custom_id"}
		require.NoError(t, h.Validate())
		assert.Equal(t, "custom_id", h.DedupeID)
	})
}

func TestHeadline_IsScored(t *testing.T) {
	h := &Headline{Title: "x"}
	assert.False(t, h.IsScored())

	score := 7
	h.Score = &score
	assert.True(t, h.IsScored())
}
