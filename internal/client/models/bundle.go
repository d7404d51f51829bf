package models

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
)

const (
	BundleFormat        = "gophjournal-bundle"
	BundleSchemaVersion = 1
)

// Bundle is the portable export of one identity: its record, with the stored
// salt, and every entry still sealed under the identity key.
type Bundle struct {
	Format        string          `json:"format"`
	SchemaVersion int             `json:"schema_version"`
	ExportedAt    time.Time       `json:"exported_at"`
	Identity      *IdentityRecord `json:"identity"`
	Records       []BundleRecord  `json:"records"`
}

// BundleRecord is one sealed entry inside a bundle. Envelope holds the text
// form and is decoded per record by the importer.
type BundleRecord struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Envelope  json.RawMessage `json:"envelope"`
}

// NewBundleRecord encodes env into the text form for e.
func NewBundleRecord(e *Entry, env *cryptox.Envelope) (BundleRecord, error) {
	text, err := cryptox.EncodeText(env)
	if err != nil {
		return BundleRecord{}, err
	}
	return BundleRecord{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Envelope:  json.RawMessage(text),
	}, nil
}

// DecodeEnvelope parses the record envelope. A missing or malformed envelope
// wraps cryptox.ErrDecoding.
func (r *BundleRecord) DecodeEnvelope() (*cryptox.Envelope, error) {
	if len(r.Envelope) == 0 {
		return nil, fmt.Errorf("%w: record without envelope", cryptox.ErrDecoding)
	}
	return cryptox.DecodeText(string(r.Envelope))
}

// Validate checks the bundle header and identity. Records are checked one by
// one by the importer so that a single bad record does not reject the file.
func (b *Bundle) Validate() error {
	if b.Format != BundleFormat {
		return fmt.Errorf("%w: unknown bundle format %q", cryptox.ErrDecoding, b.Format)
	}
	if b.SchemaVersion != BundleSchemaVersion {
		return fmt.Errorf("%w: unsupported bundle schema version %d", cryptox.ErrDecoding, b.SchemaVersion)
	}
	if b.Identity == nil {
		return fmt.Errorf("%w: bundle without identity", cryptox.ErrDecoding)
	}
	return b.Identity.Validate()
}

// WriteBundle encodes b as indented JSON.
func WriteBundle(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes and validates a bundle. Unknown fields fail closed.
func ReadBundle(r io.Reader) (*Bundle, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: bundle: %v", cryptox.ErrDecoding, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after bundle", cryptox.ErrDecoding)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
