package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	assert.Equal(t, "acme-42-30", DeriveKey("acme", "42", 30))
	assert.Equal(t, DeriveKey("Youtube", "dQw4w9WgXcQ", 0), DeriveKey("Youtube", "dQw4w9WgXcQ", 0))
	assert.NotEqual(t, DeriveKey("acme", "42", 30), DeriveKey("acme", "42", 31))
}

func TestDeriveKeyEscapesSeparator(t *testing.T) {
	a := DeriveKey("a-b", "c", 1)
	b := DeriveKey("a", "b-c", 1)

	assert.NotEqual(t, a, b)
	assert.Equal(t, `a\-b-c-1`, a)
	assert.Equal(t, `a-b\-c-1`, b)
	assert.NotEqual(t, DeriveKey(`a\`, "b", 1), DeriveKey("a", `\b`, 1))
}
