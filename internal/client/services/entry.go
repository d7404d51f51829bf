package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/repositories/entries"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/common"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/dmitrijs2005/gophjournal/internal/logging"
	"github.com/google/uuid"
)

// EntryService seals and opens journal entries of the active identity.
type EntryService interface {
	Add(ctx context.Context, note models.Note) (*models.NoteView, error)
	Update(ctx context.Context, id string, note models.Note) (*models.NoteView, error)
	Get(ctx context.Context, id string) (*models.NoteView, error)
	List(ctx context.Context) (*ListResult, error)
	Delete(ctx context.Context, id string) error
}

// ListResult holds the entries that opened and one error per entry that did not.
type ListResult struct {
	Notes    []*models.NoteView
	Failures []*common.CorruptRecordError
}

type entryService struct {
	db       *sql.DB
	sessions *session.Manager
	logger   logging.Logger
	now      func() time.Time
}

// NewEntryService constructs an EntryService.
func NewEntryService(db *sql.DB, sessions *session.Manager, logger logging.Logger) EntryService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &entryService{db: db, sessions: sessions, logger: logger, now: time.Now}
}

func (s *entryService) repo() entries.Repository {
	return entries.NewSQLiteRepository(s.db)
}

func (s *entryService) Add(ctx context.Context, note models.Note) (*models.NoteView, error) {
	if err := note.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	e := &models.Entry{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}

	err := s.sessions.WithSession(func(identity string, key []byte) error {
		env, err := sealNote(note, key, e.ID)
		if err != nil {
			return err
		}
		e.Owner = identity
		e.Envelope = env
		if err := s.repo().Insert(ctx, e); err != nil {
			return fmt.Errorf("saving error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "entry added", "id", e.ID)

	return &models.NoteView{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt, Note: note}, nil
}

func (s *entryService) Update(ctx context.Context, id string, note models.Note) (*models.NoteView, error) {
	if err := note.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	identity, err := s.sessions.ActiveIdentity()
	if err != nil {
		return nil, err
	}

	e, err := s.repo().GetByID(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	err = s.sessions.WithSession(func(owner string, key []byte) error {
		if owner != identity {
			return session.ErrSessionSuperseded
		}
		env, err := sealNote(note, key, e.ID)
		if err != nil {
			return err
		}
		e.Envelope = env
		e.UpdatedAt = s.now().UTC()
		if err := s.repo().UpdateEnvelope(ctx, e); err != nil {
			return fmt.Errorf("saving error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.NoteView{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt, Note: note}, nil
}

// Get opens one entry. An entry that does not decode or authenticate is
// reported as a *common.CorruptRecordError.
func (s *entryService) Get(ctx context.Context, id string) (*models.NoteView, error) {
	identity, err := s.sessions.ActiveIdentity()
	if err != nil {
		return nil, err
	}

	e, err := s.repo().GetByID(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	var view *models.NoteView
	err = s.sessions.WithSession(func(owner string, key []byte) error {
		if owner != identity {
			return session.ErrSessionSuperseded
		}
		view, err = openNote(e, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// List opens every entry of the active identity. Entries that fail are
// collected in Failures; the rest are still returned.
func (s *entryService) List(ctx context.Context) (*ListResult, error) {
	identity, err := s.sessions.ActiveIdentity()
	if err != nil {
		return nil, err
	}

	rows, err := s.repo().ListByOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}

	result := &ListResult{Notes: make([]*models.NoteView, 0, len(rows))}
	err = s.sessions.WithSession(func(owner string, key []byte) error {
		if owner != identity {
			return session.ErrSessionSuperseded
		}
		for _, row := range rows {
			view, err := openNote(row, key)
			if err != nil {
				result.Failures = append(result.Failures, asCorrupt(row.ID, err))
				continue
			}
			result.Notes = append(result.Notes, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, f := range result.Failures {
		s.logger.Warn(ctx, "error decrypting entry", "id", f.RecordID, "error", f.Err)
	}
	return result, nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	identity, err := s.sessions.ActiveIdentity()
	if err != nil {
		return err
	}
	if err := s.repo().DeleteByID(ctx, identity, id); err != nil {
		return err
	}
	s.logger.Debug(ctx, "entry deleted", "id", id)
	return nil
}

func sealNote(note models.Note, key []byte, id string) ([]byte, error) {
	plain, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encode note: %w", err)
	}
	defer memguard.WipeBytes(plain)

	env, err := cryptox.SealWithAAD(plain, key, models.EntryAAD(id))
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}
	return env.MarshalBinary()
}

// openEntry decodes and opens the envelope of e. Failures carry the entry id.
func openEntry(e *models.Entry, key []byte) ([]byte, error) {
	env, err := cryptox.DecodeEnvelope(e.Envelope)
	if err != nil {
		return nil, common.NewCorruptRecordError(e.ID, err)
	}
	plain, err := cryptox.OpenWithAAD(env, key, models.EntryAAD(e.ID))
	if err != nil {
		return nil, common.NewCorruptRecordError(e.ID, err)
	}
	return plain, nil
}

func openNote(e *models.Entry, key []byte) (*models.NoteView, error) {
	plain, err := openEntry(e, key)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plain)

	var note models.Note
	if err := json.Unmarshal(plain, &note); err != nil {
		return nil, common.NewCorruptRecordError(e.ID, fmt.Errorf("%w: note: %v", cryptox.ErrDecoding, err))
	}
	return &models.NoteView{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt, Note: note}, nil
}

func asCorrupt(id string, err error) *common.CorruptRecordError {
	var cerr *common.CorruptRecordError
	if errors.As(err, &cerr) {
		return cerr
	}
	return common.NewCorruptRecordError(id, err)
}
