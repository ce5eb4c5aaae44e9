// Package cursor encodes the resume point of a reply listing as an opaque token.
// The token carries only the id of the last row returned, so no server-side
// session is needed and pagination survives restarts.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/comment-platform/services/comments/internal/domain"
)

const prefix = "r1:"

// Encode returns the token for the row with the given id.
func Encode(lastID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(prefix + strconv.FormatInt(lastID, 10)))
}

// Decode returns the id carried by token. Any malformed token yields
// domain.ErrInvalidCursor.
func Decode(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	s, ok := strings.CutPrefix(string(raw), prefix)
	if !ok {
		return 0, fmt.Errorf("%w: unknown version", domain.ErrInvalidCursor)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: bad id", domain.ErrInvalidCursor)
	}
	return id, nil
}

// Next returns the cursor for a page of n rows ending at lastID, or nil when
// the page is shorter than limit. A full page means more rows may exist.
func Next(n, limit int, lastID int64) *string {
	if n == 0 || n < limit {
		return nil
	}
	c := Encode(lastID)
	return &c
}
