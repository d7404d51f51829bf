package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/repositories/entries"
	"github.com/dmitrijs2005/gophjournal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/common"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/dmitrijs2005/gophjournal/internal/dbx"
	"github.com/dmitrijs2005/gophjournal/internal/logging"
)

// BundleService moves an identity and its entries between journals.
//
// Export writes the active identity with its stored salt and every entry in
// sealed form; nothing is decrypted on the way out except to verify that the
// entry still opens. Import verifies the secret against the bundle identity
// before anything is written.
type BundleService interface {
	Export(ctx context.Context, w io.Writer) (*TransferResult, error)
	Import(ctx context.Context, r io.Reader, secret []byte) (*TransferResult, error)
}

// TransferResult counts the entries moved and lists the ones skipped.
type TransferResult struct {
	Identity string
	Count    int
	Failures []*common.CorruptRecordError
}

type bundleService struct {
	db       *sql.DB
	sessions *session.Manager
	logger   logging.Logger
	now      func() time.Time
}

// NewBundleService constructs a BundleService.
func NewBundleService(db *sql.DB, sessions *session.Manager, logger logging.Logger) BundleService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &bundleService{db: db, sessions: sessions, logger: logger, now: time.Now}
}

func (s *bundleService) Export(ctx context.Context, w io.Writer) (*TransferResult, error) {
	identity, err := s.sessions.ActiveIdentity()
	if err != nil {
		return nil, err
	}

	rec, err := loadIdentity(ctx, metadata.NewSQLiteRepository(s.db), identity)
	if err != nil {
		return nil, err
	}

	rows, err := entries.NewSQLiteRepository(s.db).ListByOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	b := &models.Bundle{
		Format:        models.BundleFormat,
		SchemaVersion: models.BundleSchemaVersion,
		ExportedAt:    s.now().UTC(),
		Identity:      rec,
		Records:       make([]models.BundleRecord, 0, len(rows)),
	}
	res := &TransferResult{Identity: identity}

	err = s.sessions.WithSession(func(owner string, key []byte) error {
		if owner != identity {
			return session.ErrSessionSuperseded
		}
		for _, row := range rows {
			plain, err := openEntry(row, key)
			if err != nil {
				res.Failures = append(res.Failures, asCorrupt(row.ID, err))
				continue
			}
			memguard.WipeBytes(plain)

			env, err := cryptox.DecodeEnvelope(row.Envelope)
			if err != nil {
				res.Failures = append(res.Failures, asCorrupt(row.ID, err))
				continue
			}
			br, err := models.NewBundleRecord(row, env)
			if err != nil {
				res.Failures = append(res.Failures, asCorrupt(row.ID, err))
				continue
			}
			b.Records = append(b.Records, br)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := models.WriteBundle(w, b); err != nil {
		return nil, err
	}
	res.Count = len(b.Records)

	s.logger.Info(ctx, "bundle exported", "identity", identity, "entries", res.Count, "skipped", len(res.Failures))
	return res, nil
}

// Import reads a bundle, checks secret against its identity and stores the
// identity (if new) and every entry that opens. An identity already present
// with a different salt is rejected with common.ErrIdentityMismatch.
func (s *bundleService) Import(ctx context.Context, r io.Reader, secret []byte) (*TransferResult, error) {
	b, err := models.ReadBundle(r)
	if err != nil {
		return nil, err
	}
	rec := b.Identity

	key, err := unlockIdentity(ctx, rec, secret)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(key)

	res := &TransferResult{Identity: rec.Username}
	valid := make([]*models.Entry, 0, len(b.Records))
	seen := make(map[string]struct{}, len(b.Records))

	for i := range b.Records {
		br := &b.Records[i]
		if br.ID == "" {
			res.Failures = append(res.Failures, common.NewCorruptRecordError(fmt.Sprintf("#%d", i),
				fmt.Errorf("%w: record without id", cryptox.ErrDecoding)))
			continue
		}
		if _, dup := seen[br.ID]; dup {
			res.Failures = append(res.Failures, common.NewCorruptRecordError(br.ID,
				fmt.Errorf("%w: duplicate record id", cryptox.ErrDecoding)))
			continue
		}
		seen[br.ID] = struct{}{}

		env, err := br.DecodeEnvelope()
		if err != nil {
			res.Failures = append(res.Failures, common.NewCorruptRecordError(br.ID, err))
			continue
		}
		data, err := env.MarshalBinary()
		if err != nil {
			res.Failures = append(res.Failures, common.NewCorruptRecordError(br.ID, err))
			continue
		}
		e := &models.Entry{
			ID:        br.ID,
			Owner:     rec.Username,
			Envelope:  data,
			CreatedAt: br.CreatedAt.UTC(),
			UpdatedAt: br.UpdatedAt.UTC(),
		}

		plain, err := openEntry(e, key)
		if err != nil {
			res.Failures = append(res.Failures, asCorrupt(br.ID, err))
			continue
		}
		memguard.WipeBytes(plain)
		valid = append(valid, e)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		metaRepo := metadata.NewSQLiteRepository(tx)

		existing, err := loadIdentity(ctx, metaRepo, rec.Username)
		switch {
		case errors.Is(err, common.ErrNotRegistered):
			data, err := models.MarshalIdentity(rec)
			if err != nil {
				return err
			}
			if err := metaRepo.Insert(ctx, models.IdentityKey(rec.Username), data); err != nil {
				return err
			}
		case err != nil:
			return err
		case !models.SameIdentity(existing, rec):
			return common.ErrIdentityMismatch
		}

		entryRepo := entries.NewSQLiteRepository(tx)
		for _, e := range valid {
			if err := entryRepo.Upsert(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import bundle: %w", err)
	}
	res.Count = len(valid)

	s.logger.Info(ctx, "bundle imported", "identity", rec.Username, "entries", res.Count, "skipped", len(res.Failures))
	return res, nil
}
