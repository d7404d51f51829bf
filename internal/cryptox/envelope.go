package cryptox

import (
	"bytes"
	"fmt"
)

// CurrentSchemaVersion is the envelope version produced by Seal. Readers
// reject every version they do not know.
const CurrentSchemaVersion = 1

// Envelope is one sealed unit of data. It is immutable once produced by Seal.
type Envelope struct {
	SchemaVersion int
	Nonce         []byte
	Ciphertext    []byte
	AuthTag       []byte
}

func supportedVersion(v int) bool {
	return v == CurrentSchemaVersion
}

// Validate checks the envelope shape without touching any key.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil envelope", ErrDecoding)
	}
	if !supportedVersion(e.SchemaVersion) {
		return fmt.Errorf("%w: unsupported schema version %d", ErrDecoding, e.SchemaVersion)
	}
	if len(e.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrDecoding, NonceSize, len(e.Nonce))
	}
	if len(e.AuthTag) != TagSize {
		return fmt.Errorf("%w: tag must be %d bytes, got %d", ErrDecoding, TagSize, len(e.AuthTag))
	}
	return nil
}

// Equal reports whether both envelopes carry the same version and bytes.
// A nil and an empty ciphertext compare equal.
func (e *Envelope) Equal(o *Envelope) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.SchemaVersion == o.SchemaVersion &&
		bytes.Equal(e.Nonce, o.Nonce) &&
		bytes.Equal(e.Ciphertext, o.Ciphertext) &&
		bytes.Equal(e.AuthTag, o.AuthTag)
}
