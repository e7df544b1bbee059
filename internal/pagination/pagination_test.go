package pagination

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 1, 9, 15, 0, 0, time.UTC)
	id := "ses_abc123"

	cursor, err := Decode(Encode(ts, id))
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, ts, cursor.CreatedAt)
	assert.Equal(t, id, cursor.ID)
}

func TestDecode_Empty(t *testing.T) {
	cursor, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecode_Garbage(t *testing.T) {
	for _, raw := range []string{"not-base64!!!", "bm9waXBl", "MTIzNDU="} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, "input %q", raw)
	}
}

func TestComputePage(t *testing.T) {
	type item struct {
		at time.Time
		id string
	}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	extract := func(i item) (time.Time, string) { return i.at, i.id }

	var items []item
	for i := 0; i < 6; i++ {
		items = append(items, item{at: base.Add(-time.Duration(i) * time.Hour), id: fmt.Sprintf("ses_%d", i)})
	}

	// Fetched limit+1: page trimmed, cursor points at the last returned item.
	page, next, more := ComputePage(items, 5, extract)
	require.Len(t, page, 5)
	assert.True(t, more)

	cursor, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, "ses_4", cursor.ID)

	// Under the limit: no cursor.
	page, next, more = ComputePage(items[:3], 5, extract)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
	assert.False(t, more)
}
