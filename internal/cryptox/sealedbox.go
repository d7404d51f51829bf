package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16
)

// aadPrefix is mixed into the authenticated data of every envelope together
// with its schema version.
const aadPrefix = "gophjournal/envelope"

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func additionalData(version int, aad []byte) []byte {
	out := make([]byte, 0, len(aadPrefix)+2+len(aad))
	out = append(out, aadPrefix...)
	out = append(out, byte(version>>8), byte(version))
	return append(out, aad...)
}

// Seal encrypts plaintext under key into a new Envelope with a fresh random
// nonce.
func Seal(plaintext, key []byte) (*Envelope, error) {
	return SealWithAAD(plaintext, key, nil)
}

// SealWithAAD is Seal with additional authenticated data. The same aad must be
// supplied to OpenWithAAD; it is not stored in the envelope.
func SealWithAAD(plaintext, key, aad []byte) (*Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, additionalData(CurrentSchemaVersion, aad))

	// GCM appends the tag; TagSize is fixed so the split is unambiguous.
	split := len(sealed) - TagSize
	return &Envelope{
		SchemaVersion: CurrentSchemaVersion,
		Nonce:         nonce,
		Ciphertext:    sealed[:split:split],
		AuthTag:       sealed[split:],
	}, nil
}

// Open authenticates and decrypts env with key.
func Open(env *Envelope, key []byte) ([]byte, error) {
	return OpenWithAAD(env, key, nil)
}

// OpenWithAAD authenticates and decrypts env with key and aad. A structurally
// invalid envelope yields ErrDecoding; a wrong key, wrong aad or modified
// envelope yields ErrAuthentication.
func OpenWithAAD(env *Envelope, key, aad []byte) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := gcm.Open(nil, env.Nonce, sealed, additionalData(env.SchemaVersion, aad))
	if err != nil {
		return nil, ErrAuthentication
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}
