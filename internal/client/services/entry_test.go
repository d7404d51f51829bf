package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/common"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_AddGetRoundTrip(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.register(t, testUser, testSecret)

	note := models.Note{Title: "first", Text: "dear diary", Tags: []string{"a", "b"}}
	added, err := env.entries.Add(ctx, note)
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)

	got, err := env.entries.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, note, got.Note)
	assert.True(t, added.CreatedAt.Equal(got.CreatedAt))

	stored := env.storedEnvelope(t, added.ID)
	assert.NotContains(t, string(stored), "dear diary")
}

func TestEntry_RejectsEmptyNote(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)

	_, err := env.entries.Add(context.Background(), models.Note{})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestEntry_RequiresSession(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.entries.Add(ctx, models.Note{Title: "x"})
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	_, err = env.entries.List(ctx)
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	_, err = env.entries.Get(ctx, "id")
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	require.ErrorIs(t, env.entries.Delete(ctx, "id"), session.ErrNoActiveSession)
}

func TestEntry_ExpiredSessionRejected(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 1)

	env.clock.Advance(11 * time.Minute)

	_, err := env.entries.Get(ctx, notes[0].ID)
	require.ErrorIs(t, err, session.ErrNoActiveSession)
	_, err = env.entries.Add(ctx, models.Note{Title: "late"})
	require.ErrorIs(t, err, session.ErrNoActiveSession)
}

func TestEntry_ListOrderedByCreation(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 4)

	res, err := env.entries.List(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Notes, 4)
	for i, n := range res.Notes {
		assert.Equal(t, notes[i].ID, n.ID)
		assert.Equal(t, notes[i].Note, n.Note)
	}
}

func TestEntry_IdentitiesAreIsolated(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.register(t, "a", testSecret)
	aNotes := env.addNotes(t, 2)

	env.register(t, "b", testSecret)
	res, err := env.entries.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Notes)

	_, err = env.entries.Get(ctx, aNotes[0].ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.ErrorIs(t, env.entries.Delete(ctx, aNotes[0].ID), common.ErrorNotFound)
}

func TestEntry_CorruptRecordIsReported(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 1)
	env.corrupt(t, notes[0].ID)

	_, err := env.entries.Get(context.Background(), notes[0].ID)
	require.ErrorIs(t, err, common.ErrCorruptRecord)
	require.ErrorIs(t, err, cryptox.ErrAuthentication)

	var cerr *common.CorruptRecordError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, notes[0].ID, cerr.RecordID)
}

func TestEntry_TruncatedEnvelopeIsDecodingError(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 1)
	stored := env.storedEnvelope(t, notes[0].ID)
	env.setEnvelope(t, notes[0].ID, stored[:len(stored)/2])

	_, err := env.entries.Get(context.Background(), notes[0].ID)
	require.ErrorIs(t, err, common.ErrCorruptRecord)
	require.ErrorIs(t, err, cryptox.ErrDecoding)
}

func TestEntry_ListPartialFailure(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 10)
	env.corrupt(t, notes[4].ID)

	res, err := env.entries.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Notes, 9)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, notes[4].ID, res.Failures[0].RecordID)
	require.ErrorIs(t, res.Failures[0], common.ErrCorruptRecord)
}

func TestEntry_EnvelopeBoundToRecordID(t *testing.T) {
	env := newEnv(t)
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 2)

	first := env.storedEnvelope(t, notes[0].ID)
	env.setEnvelope(t, notes[1].ID, first)

	_, err := env.entries.Get(context.Background(), notes[1].ID)
	require.ErrorIs(t, err, cryptox.ErrAuthentication)
}

func TestEntry_UpdateAndDelete(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.register(t, testUser, testSecret)
	notes := env.addNotes(t, 1)

	env.clock.Advance(time.Minute)
	upd, err := env.entries.Update(ctx, notes[0].ID, models.Note{Title: "changed"})
	require.NoError(t, err)
	assert.True(t, upd.UpdatedAt.After(upd.CreatedAt))

	got, err := env.entries.Get(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Note.Title)

	require.NoError(t, env.entries.Delete(ctx, notes[0].ID))
	_, err = env.entries.Get(ctx, notes[0].ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
