// Package models defines the records the journal persists and the plaintext
// shapes sealed inside them.
package models

import (
	"errors"
	"strings"
	"time"
)

// Entry is a content record as the record store sees it: an opaque sealed
// envelope plus non-secret metadata used for ordering.
type Entry struct {
	// ID is a globally unique identifier (UUID) for the entry.
	ID string

	// Owner is the identity whose session key sealed the envelope.
	Owner string

	// Envelope is the binary encoding of a cryptox.Envelope.
	Envelope []byte

	// CreatedAt and UpdatedAt are UTC timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is the plaintext of a journal entry.
type Note struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

var ErrEmptyNote = errors.New("note must have a title or text")

// Validate rejects notes with neither title nor text.
func (n Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Text) == "" {
		return ErrEmptyNote
	}
	return nil
}

// TagsFromString splits a comma separated list, trimming blanks and dropping
// empty and repeated tags.
func TagsFromString(s string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// EntryAAD is the additional data an entry envelope is sealed with. It ties
// the envelope to its record id.
func EntryAAD(id string) []byte {
	return []byte("entry/" + id)
}

// NoteView is an opened entry as shown to the user.
type NoteView struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Note      Note
}
