// Package entries persists sealed journal entries.
//
// The repository never sees plaintext: each row holds the binary encoding of
// a cryptox.Envelope together with the owning identity and creation/update
// timestamps, which the journal uses for ordering. Timestamps are stored as
// Unix nanoseconds.
//
// SQLiteRepository works on a dbx.DBTX, so the same code runs against the
// pool or inside dbx.WithTx.
package entries
