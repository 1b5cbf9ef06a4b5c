package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULID_Generation(t *testing.T) {
	id1 := NewULID()
	id2 := NewULID()

	assert.False(t, id1.IsZero())
	assert.NotEqual(t, id1.String(), id2.String())
	assert.Len(t, id1.String(), 26)
}

func TestULID_ParseRoundTrip(t *testing.T) {
	id := NewULID()

	parsed, err := ParseULID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseULID("not-a-ulid")
	assert.Error(t, err)
}

func TestULID_SQLRoundTrip(t *testing.T) {
	id := NewULID()

	val, err := id.Value()
	require.NoError(t, err)
	require.IsType(t, "", val)

	var scanned ULID
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, id, scanned)

	// Zero ULID stores as NULL.
	val, err = ULID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())
}

func TestULID_JSONRoundTrip(t *testing.T) {
	id := NewULID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded ULID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	// Zero marshals as null and null unmarshals to zero.
	data, err = json.Marshal(ULID{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.True(t, decoded.IsZero())
}

func TestULID_SortsByCreationTime(t *testing.T) {
	early := NewULID()
	time.Sleep(2 * time.Millisecond)
	late := NewULID()

	assert.Less(t, early.String(), late.String())
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	m := &BaseModel{}
	require.NoError(t, m.BeforeCreate(nil))
	assert.False(t, m.ID.IsZero())

	// Existing ID is preserved.
	existing := m.ID
	require.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, existing, m.ID)
}
