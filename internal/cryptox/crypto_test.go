package cryptox

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	k, err := randomBytes(KeySize)
	require.NoError(t, err)
	return k
}

func testSalt(b byte) []byte {
	return bytes.Repeat([]byte{b}, SaltSize)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("secret-password")
	salt := testSalt(7)

	key1, err := DeriveKey(secret, salt, FastKDFParams())
	require.NoError(t, err)
	key2, err := DeriveKey(secret, salt, FastKDFParams())
	require.NoError(t, err)

	assert.Len(t, key1, KeySize)
	assert.Equal(t, key1, key2)
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	secret := []byte("secret-password")

	key1, err := DeriveKey(secret, testSalt(1), FastKDFParams())
	require.NoError(t, err)
	key2, err := DeriveKey(secret, testSalt(2), FastKDFParams())
	require.NoError(t, err)
	key3, err := DeriveKey([]byte("other-password"), testSalt(1), FastKDFParams())
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestDeriveKey_CostIsPartOfTheKey(t *testing.T) {
	p := FastKDFParams()
	p2 := p
	p2.Time = 2

	key1, err := DeriveKey([]byte("pw"), testSalt(3), p)
	require.NoError(t, err)
	key2, err := DeriveKey([]byte("pw"), testSalt(3), p2)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestDeriveKey_RejectsInvalidInput(t *testing.T) {
	base := FastKDFParams()

	tests := []struct {
		name   string
		secret []byte
		salt   []byte
		mutate func(p *KDFParams)
	}{
		{name: "empty secret", secret: nil, salt: testSalt(1)},
		{name: "short salt", secret: []byte("pw"), salt: []byte("short")},
		{name: "zero time", secret: []byte("pw"), salt: testSalt(1), mutate: func(p *KDFParams) { p.Time = 0 }},
		{name: "zero threads", secret: []byte("pw"), salt: testSalt(1), mutate: func(p *KDFParams) { p.Threads = 0 }},
		{name: "tiny memory", secret: []byte("pw"), salt: testSalt(1), mutate: func(p *KDFParams) { p.MemoryKiB = 4 }},
		{name: "wrong key length", secret: []byte("pw"), salt: testSalt(1), mutate: func(p *KDFParams) { p.KeyLen = 16 }},
		{name: "unknown algorithm", secret: []byte("pw"), salt: testSalt(1), mutate: func(p *KDFParams) { p.Algorithm = "pbkdf2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			key, err := DeriveKey(tt.secret, tt.salt, p)
			require.ErrorIs(t, err, ErrDerivation)
			assert.Nil(t, key)
		})
	}
}

func TestDeriveKeyContext_MatchesDeriveKey(t *testing.T) {
	secret := []byte("secret-password")
	salt := testSalt(9)

	want, err := DeriveKey(secret, salt, FastKDFParams())
	require.NoError(t, err)

	got, err := DeriveKeyContext(context.Background(), secret, salt, FastKDFParams())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDeriveKeyContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key, err := DeriveKeyContext(ctx, []byte("pw"), testSalt(1), FastKDFParams())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, key)
}

func TestDeriveKeyContext_PropagatesDerivationError(t *testing.T) {
	_, err := DeriveKeyContext(context.Background(), []byte("pw"), []byte("short"), FastKDFParams())
	require.ErrorIs(t, err, ErrDerivation)
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, SaltSize)
	assert.NotEqual(t, a, b)
}

func TestDefaultKDFParams_Valid(t *testing.T) {
	require.NoError(t, DefaultKDFParams().Validate())
	require.NoError(t, FastKDFParams().Validate())
}
