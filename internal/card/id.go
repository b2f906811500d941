package card

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idPrefix = "card_"

// NewID returns "card_<unix-ms>_<16 hex chars>". The random half comes from a
// v4 UUID, so ids minted in the same millisecond still differ.
func NewID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%s%d_%s", idPrefix, now.UnixMilli(), hex.EncodeToString(u[8:16]))
}

// LocalID is the id format clients mint for cards that only exist in their
// local storage.
func LocalID(now time.Time) string {
	return fmt.Sprintf("%s%d", idPrefix, now.UnixMilli())
}

// LooksLikeID is a cheap sanity check for ids coming from query strings.
func LooksLikeID(id string) bool {
	if !strings.HasPrefix(id, idPrefix) || len(id) > 64 {
		return false
	}
	for _, r := range id[len(idPrefix):] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r == '_') {
			return false
		}
	}
	return true
}
