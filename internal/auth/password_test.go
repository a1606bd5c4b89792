package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	return NewHasher(HashParams{Memory: 1024, Time: 1, Threads: 1})
}

func TestHashIsSaltedAndVerifies(t *testing.T) {
	h := newTestHasher()

	first, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	second, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.True(t, h.Verify("s3cret-pass", first))
	assert.True(t, h.Verify("s3cret-pass", second))
	assert.False(t, h.Verify("wrong", first))
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher()
	good, err := h.Hash("pw")
	require.NoError(t, err)
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"empty":         "",
		"plaintext":     "pw",
		"wrong scheme":  strings.Replace(good, "argon2id", "argon2i", 1),
		"bad version":   strings.Replace(good, "v=19", "v=1", 1),
		"bad params":    strings.Replace(good, "m=1024,t=1,p=1", "m=x", 1),
		"zero threads":  strings.Replace(good, "p=1", "p=0", 1),
		"bad salt":      strings.Join([]string{"", parts[1], parts[2], parts[3], "!!!", parts[5]}, "$"),
		"missing key":   strings.Join(parts[:5], "$"),
		"broken bcrypt": "$2a$10$short",
	}
	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Verify("pw", hash))
		})
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	h := newTestHasher()
	assert.True(t, h.Verify("old-password", string(legacy)))
	assert.False(t, h.Verify("other", string(legacy)))
	assert.True(t, h.NeedsRehash(string(legacy)))
}

func TestNeedsRehash(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(hash))

	stronger := NewHasher(HashParams{Memory: 2048, Time: 2, Threads: 1})
	assert.True(t, stronger.NeedsRehash(hash))
	assert.True(t, stronger.Verify("pw", hash))
}
