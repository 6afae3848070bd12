// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"example.com/analytics/internal/domain"
)

// cursorSeparator splits the timestamp from the activity id inside a token.
// The id is a UUID, so the separator can never appear in it.
const cursorSeparator = "|"

// EncodeCursor renders a keyset position as an opaque token for the activity
// listing endpoint. Tokens use unpadded URL-safe base64 so they survive
// query strings without escaping. A nil cursor encodes to "" (no next page).
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := c.StartedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. Blank tokens mean
// "first page" and decode to nil without error.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), cursorSeparator, 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor token")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	return &domain.Cursor{StartedAt: ts, ID: parts[1]}, nil
}
