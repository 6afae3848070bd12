package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{
		StartedAt: time.Date(2026, 3, 14, 8, 30, 15, 123456789, time.UTC),
		ID:        "act-1",
	}

	token := EncodeCursor(cursor)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, cursor.StartedAt.Equal(decoded.StartedAt))
	require.Equal(t, cursor.ID, decoded.ID)
}

func TestEncodeCursorNil(t *testing.T) {
	require.Empty(t, EncodeCursor(nil))
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	decoded, err := DecodeCursor("   ")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("!!not-base64!!")
	require.Error(t, err)

	// Valid base64, wrong structure.
	_, err = DecodeCursor("bm9wZQ==")
	require.Error(t, err)
}
