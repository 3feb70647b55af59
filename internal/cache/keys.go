package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// FragmentKey identifies one rendered document fragment
type FragmentKey struct {
	RecordType string
	ID         string
	Level      int
	NoLinks    bool
	// Fields is the rendered field selector. Callers must keep the
	// unrestricted selection distinct from every restricted one.
	Fields string
	// Extra carries caller-defined discriminators (e.g. params digest)
	Extra []string
}

// String builds the cache key. The variable part is hashed to keep keys short.
func (k FragmentKey) String() string {
	parts := []string{
		strconv.Itoa(k.Level),
		strconv.FormatBool(k.NoLinks),
		k.Fields,
	}
	parts = append(parts, k.Extra...)

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	// Truncate to 16 bytes for shorter cache keys
	return "fragment:" + k.RecordType + ":" + k.ID + ":" + hex.EncodeToString(hash[:16])
}
