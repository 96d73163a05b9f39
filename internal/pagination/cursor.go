package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor reports a cursor token that is present but undecodable.
// It is distinct from an absent cursor, which means "start from the top".
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the position token handed to clients. It round-trips through an
// opaque string; callers never see the field layout.
type Cursor struct {
	ID      string `json:"id"`
	SortKey string `json:"sk"`
}

// Encode serializes the cursor into an opaque URL-safe token.
func Encode(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a client-supplied token. The empty token decodes to
// (zero, false, nil): no position, not an error. Anything else that fails
// to parse wraps ErrInvalidCursor so callers can reject it explicitly
// instead of silently restarting the page.
func Decode(token string) (Cursor, bool, error) {
	if token == "" {
		return Cursor{}, false, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == "" {
		return Cursor{}, false, fmt.Errorf("%w: missing id", ErrInvalidCursor)
	}
	return c, true, nil
}
