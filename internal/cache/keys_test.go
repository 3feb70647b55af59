package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentKey_String(t *testing.T) {
	base := FragmentKey{RecordType: "movie", ID: "42", Level: 1, Fields: "*"}

	key := base.String()
	assert.True(t, strings.HasPrefix(key, "fragment:movie:42:"))
	assert.Equal(t, key, base.String(), "keys must be deterministic")

	deeper := base
	deeper.Level = 2
	assert.NotEqual(t, key, deeper.String())

	noLinks := base
	noLinks.NoLinks = true
	assert.NotEqual(t, key, noLinks.String())

	restricted := base
	restricted.Fields = "name"
	assert.NotEqual(t, key, restricted.String())

	extra := base
	extra.Extra = []string{"conditionals_off"}
	assert.NotEqual(t, key, extra.String())
}
