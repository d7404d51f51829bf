package cryptox

import "errors"

var (
	// ErrDerivation is returned when the key derivation function cannot run
	// with the supplied input or parameters.
	ErrDerivation = errors.New("key derivation failed")

	// ErrDecoding is returned for truncated, malformed or version-unknown
	// envelopes.
	ErrDecoding = errors.New("envelope decoding failed")

	// ErrAuthentication is returned when an envelope fails authentication:
	// either the key is wrong or the envelope was modified.
	ErrAuthentication = errors.New("envelope authentication failed")
)
