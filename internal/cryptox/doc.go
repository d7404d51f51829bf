// Package cryptox implements the local cryptographic envelope used by the
// journal: password based key derivation (Argon2id), authenticated sealing of
// records (AES-256-GCM) and the versioned Envelope with its binary and text
// encodings.
//
// Errors are reported through three sentinels that callers match with
// errors.Is:
//
//   - ErrDerivation     the KDF rejected its input or parameters
//   - ErrDecoding       an envelope is structurally invalid or of unknown version
//   - ErrAuthentication the authentication tag did not verify
//
// ErrAuthentication deliberately does not say whether the key was wrong or
// the data was modified.
package cryptox
