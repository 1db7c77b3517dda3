package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_DecodesNumericAndStringIDs(t *testing.T) {
	var numeric, text Post
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"content":"hi","createdAt":"2024-01-01"}`), &numeric))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","content":"hi"}`), &text))

	assert.Equal(t, ID("1"), numeric.ID)
	assert.Equal(t, ID("abc"), text.ID)
	assert.Equal(t, Timestamp("2024-01-01"), numeric.CreatedAt)
}

func TestPost_RejectsObjectID(t *testing.T) {
	var p Post
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"x":1}}`), &p))
}

func TestPost_DisplayAuthor(t *testing.T) {
	assert.Equal(t, "Anonymous", Post{}.DisplayAuthor())
	assert.Equal(t, "Amy", Post{Author: "Amy"}.DisplayAuthor())
}

func TestTimestamp_Time(t *testing.T) {
	ts, ok := Timestamp("2024-02-01").Time()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.February, ts.Month())

	_, ok = Timestamp("").Time()
	assert.False(t, ok)

	_, ok = Timestamp("not a date").Time()
	assert.False(t, ok)
}

func TestTimestamp_NullDecodesEmpty(t *testing.T) {
	var p Post
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","createdAt":null}`), &p))
	assert.Equal(t, Timestamp(""), p.CreatedAt)
}

func TestNewTimestamp_RoundTrips(t *testing.T) {
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	parsed, ok := NewTimestamp(now).Time()
	require.True(t, ok)
	assert.True(t, now.Equal(parsed))
}
