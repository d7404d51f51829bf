package cryptox

import (
	"context"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length of a derived key in bytes (AES-256).
	KeySize = 32
	// SaltSize is the length of a KDF salt in bytes.
	SaltSize = 32

	// AlgorithmArgon2id names the only supported KDF.
	AlgorithmArgon2id = "argon2id"
)

// KDFParams describes the key derivation function and its cost. It is stored
// next to every identity so that raising the defaults later never makes old
// identities unreadable.
type KDFParams struct {
	Algorithm string `json:"algorithm"`
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
	KeyLen    uint32 `json:"key_len"`
}

// DefaultKDFParams returns the cost used for new identities.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm: AlgorithmArgon2id,
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		KeyLen:    KeySize,
	}
}

// Validate reports parameters the derivation refuses to run with.
func (p KDFParams) Validate() error {
	switch {
	case p.Algorithm != AlgorithmArgon2id:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrDerivation, p.Algorithm)
	case p.Time == 0:
		return fmt.Errorf("%w: time cost must be positive", ErrDerivation)
	case p.Threads == 0:
		return fmt.Errorf("%w: parallelism must be positive", ErrDerivation)
	case p.MemoryKiB < 8*uint32(p.Threads):
		return fmt.Errorf("%w: memory cost %d KiB is below 8 KiB per thread", ErrDerivation, p.MemoryKiB)
	case p.KeyLen != KeySize:
		return fmt.Errorf("%w: key length must be %d, got %d", ErrDerivation, KeySize, p.KeyLen)
	}
	return nil
}

// DeriveKey turns secret and salt into a KeySize byte key with Argon2id.
// The same secret, salt and params always yield the same key.
func DeriveKey(secret, salt []byte, p KDFParams) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrDerivation)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrDerivation, SaltSize, len(salt))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen), nil
}

type deriveResult struct {
	key []byte
	err error
}

// DeriveKeyContext runs DeriveKey on its own goroutine and waits for it or for
// ctx. Argon2 cannot be interrupted, so on cancellation the derivation still
// finishes in the background and its key is wiped instead of returned.
//
// The secret is copied before the goroutine starts; the caller may wipe its
// buffer as soon as the call returns.
func DeriveKeyContext(ctx context.Context, secret, salt []byte, p KDFParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := append([]byte(nil), secret...)
	sl := append([]byte(nil), salt...)
	done := make(chan deriveResult, 1)

	go func() {
		defer memguard.WipeBytes(s)
		key, err := DeriveKey(s, sl, p)
		done <- deriveResult{key: key, err: err}
	}()

	select {
	case res := <-done:
		return res.key, res.err
	case <-ctx.Done():
		go func() {
			res := <-done
			memguard.WipeBytes(res.key)
		}()
		return nil, ctx.Err()
	}
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}
