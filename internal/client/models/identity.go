package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
)

// IdentitySchemaVersion is the IdentityRecord version written today.
const IdentitySchemaVersion = 1

// IdentityCheckMarker is the fixed plaintext sealed into every identity
// record. Opening it proves the secret; it never holds user content.
const IdentityCheckMarker = "gophjournal:identity-check:v1"

// IdentityRecord is stored once per username. It carries everything needed to
// re-derive the key at login: the salt and the KDF parameters in force when
// the identity was created.
type IdentityRecord struct {
	SchemaVersion int               `json:"schema_version"`
	Username      string            `json:"username"`
	Salt          []byte            `json:"salt"`
	KDF           cryptox.KDFParams `json:"kdf"`
	Check         cryptox.Envelope  `json:"check"`
}

const identityKeyPrefix = "identity/"

// IdentityKey is the metadata key the record is stored under.
func IdentityKey(username string) string {
	return identityKeyPrefix + username
}

// IdentityFromKey returns the username of an identity metadata key.
func IdentityFromKey(key string) (string, bool) {
	name, ok := strings.CutPrefix(key, identityKeyPrefix)
	return name, ok && name != ""
}

// IdentityAAD is the additional data the check envelope is sealed with.
func IdentityAAD(username string) []byte {
	return []byte(IdentityKey(username))
}

// Validate checks the record shape. Problems wrap cryptox.ErrDecoding.
func (r *IdentityRecord) Validate() error {
	if r.SchemaVersion != IdentitySchemaVersion {
		return fmt.Errorf("%w: unsupported identity schema version %d", cryptox.ErrDecoding, r.SchemaVersion)
	}
	if r.Username == "" {
		return fmt.Errorf("%w: identity without username", cryptox.ErrDecoding)
	}
	if len(r.Salt) != cryptox.SaltSize {
		return fmt.Errorf("%w: identity salt must be %d bytes, got %d", cryptox.ErrDecoding, cryptox.SaltSize, len(r.Salt))
	}
	if err := r.KDF.Validate(); err != nil {
		return fmt.Errorf("%w: identity kdf: %v", cryptox.ErrDecoding, err)
	}
	return r.Check.Validate()
}

// MarshalIdentity encodes r as JSON.
func MarshalIdentity(r *IdentityRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// UnmarshalIdentity decodes and validates a stored record. Unknown fields and
// versions fail closed.
func UnmarshalIdentity(data []byte) (*IdentityRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var r IdentityRecord
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: identity: %v", cryptox.ErrDecoding, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// SameIdentity reports whether two records describe the same identity: same
// username, salt and KDF parameters.
func SameIdentity(a, b *IdentityRecord) bool {
	return a.Username == b.Username && bytes.Equal(a.Salt, b.Salt) && a.KDF == b.KDF
}
