package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary layout: protobuf wire format, every field length-prefixed.
const (
	fieldSchemaVersion protowire.Number = 1
	fieldNonce         protowire.Number = 2
	fieldCiphertext    protowire.Number = 3
	fieldAuthTag       protowire.Number = 4
)

// MarshalBinary encodes the envelope for storage.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	b := make([]byte, 0, 8+len(e.Nonce)+len(e.Ciphertext)+len(e.AuthTag)+12)
	b = protowire.AppendTag(b, fieldSchemaVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.SchemaVersion))
	b = protowire.AppendTag(b, fieldNonce, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Nonce)
	b = protowire.AppendTag(b, fieldCiphertext, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Ciphertext)
	b = protowire.AppendTag(b, fieldAuthTag, protowire.BytesType)
	b = protowire.AppendBytes(b, e.AuthTag)
	return b, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into e.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return err
	}
	*e = *env
	return nil
}

// DecodeEnvelope parses the binary form. Unknown fields, duplicated fields,
// missing fields and truncated input are all rejected with ErrDecoding.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecoding)
	}

	env := &Envelope{}
	seen := make(map[protowire.Number]bool, 4)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrDecoding, protowire.ParseError(n))
		}
		data = data[n:]

		if seen[num] {
			return nil, fmt.Errorf("%w: duplicate field %d", ErrDecoding, num)
		}
		seen[num] = true

		switch num {
		case fieldSchemaVersion:
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("%w: field %d has wire type %d", ErrDecoding, num, typ)
			}
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrDecoding, protowire.ParseError(n))
			}
			if v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: schema version out of range", ErrDecoding)
			}
			env.SchemaVersion = int(v)
			data = data[n:]
		case fieldNonce, fieldCiphertext, fieldAuthTag:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("%w: field %d has wire type %d", ErrDecoding, num, typ)
			}
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrDecoding, protowire.ParseError(n))
			}
			val := append([]byte{}, v...)
			switch num {
			case fieldNonce:
				env.Nonce = val
			case fieldCiphertext:
				env.Ciphertext = val
			default:
				env.AuthTag = val
			}
			data = data[n:]
		default:
			return nil, fmt.Errorf("%w: unknown field %d", ErrDecoding, num)
		}
	}

	for _, f := range []protowire.Number{fieldSchemaVersion, fieldNonce, fieldCiphertext, fieldAuthTag} {
		if !seen[f] {
			return nil, fmt.Errorf("%w: missing field %d", ErrDecoding, f)
		}
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// envelopeJSON is the text form. Pointers distinguish a missing field from an
// empty one.
type envelopeJSON struct {
	Version    *int    `json:"v"`
	Nonce      *string `json:"nonce"`
	Ciphertext *string `json:"ciphertext"`
	Tag        *string `json:"tag"`
}

// MarshalJSON encodes the envelope as an object with base64 fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	v := e.SchemaVersion
	nonce := base64.StdEncoding.EncodeToString(e.Nonce)
	ct := base64.StdEncoding.EncodeToString(e.Ciphertext)
	tag := base64.StdEncoding.EncodeToString(e.AuthTag)
	return json.Marshal(envelopeJSON{Version: &v, Nonce: &nonce, Ciphertext: &ct, Tag: &tag})
}

// UnmarshalJSON decodes the text form.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var j envelopeJSON
	if err := dec.Decode(&j); err != nil {
		return fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	if j.Version == nil || j.Nonce == nil || j.Ciphertext == nil || j.Tag == nil {
		return fmt.Errorf("%w: missing envelope field", ErrDecoding)
	}

	env := Envelope{SchemaVersion: *j.Version}
	var err error
	if env.Nonce, err = decodeField("nonce", *j.Nonce); err != nil {
		return err
	}
	if env.Ciphertext, err = decodeField("ciphertext", *j.Ciphertext); err != nil {
		return err
	}
	if env.AuthTag, err = decodeField("tag", *j.Tag); err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return err
	}

	*e = env
	return nil
}

func decodeField(name, s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecoding, name, err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// EncodeText returns the JSON text form of env.
func EncodeText(env *Envelope) (string, error) {
	if env == nil {
		return "", fmt.Errorf("%w: nil envelope", ErrDecoding)
	}
	b, err := env.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeText parses the JSON text form.
func DecodeText(s string) (*Envelope, error) {
	env := &Envelope{}
	if err := env.UnmarshalJSON([]byte(s)); err != nil {
		return nil, err
	}
	return env, nil
}
