package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

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

// deriveKey is a test seam over the key derivation.
var deriveKey = cryptox.DeriveKeyContext

// AuthService defines identity operations for the CLI.
//
// Contract:
//   - Register: create an identity and start a session for it. When a logout
//     or another login happens while the key is derived, the identity is still
//     created but no session is started.
//   - Login: verify the secret against the stored identity and start a session.
//   - Logout: drop the session key immediately.
//   - ChangeSecret: re-key the active identity and every record it owns.
//   - DeleteIdentity: remove an identity and its records.
//   - Identities: names of the identities stored in this journal, sorted.
//
// Secrets are never retained; callers may wipe them once a call returns.
type AuthService interface {
	Register(ctx context.Context, username string, secret []byte) error
	Login(ctx context.Context, username string, secret []byte) error
	Logout(ctx context.Context)
	ChangeSecret(ctx context.Context, oldSecret, newSecret []byte) error
	DeleteIdentity(ctx context.Context, username string, secret []byte) error
	Identities(ctx context.Context) ([]string, error)
	IsSessionActive() bool
	ActiveIdentity() (string, error)
}

type authService struct {
	db       *sql.DB
	sessions *session.Manager
	kdf      cryptox.KDFParams
	logger   logging.Logger
}

// NewAuthService constructs an AuthService. kdf is used for new identities and
// secret changes; existing identities keep the parameters they were created with.
func NewAuthService(db *sql.DB, sessions *session.Manager, kdf cryptox.KDFParams, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &authService{db: db, sessions: sessions, kdf: kdf, logger: logger}
}

func (a *authService) Register(ctx context.Context, username string, secret []byte) error {
	if username == "" || len(secret) == 0 {
		return fmt.Errorf("%w: username and secret are required", common.ErrInvalidInput)
	}

	repo := metadata.NewSQLiteRepository(a.db)
	existing, err := repo.Get(ctx, models.IdentityKey(username))
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if existing != nil {
		return common.ErrAlreadyRegistered
	}

	ticket := a.sessions.Begin()

	rec, key, err := newIdentity(ctx, username, secret, a.kdf)
	if err != nil {
		return err
	}

	data, err := models.MarshalIdentity(rec)
	if err != nil {
		memguard.WipeBytes(key)
		return fmt.Errorf("encode identity: %w", err)
	}

	if err := repo.Insert(ctx, models.IdentityKey(username), data); err != nil {
		memguard.WipeBytes(key)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrAlreadyRegistered
		}
		return fmt.Errorf("save identity: %w", err)
	}
	a.logger.Info(ctx, "identity registered", "identity", username)

	err = a.sessions.Establish(ticket, username, key)
	switch {
	case errors.Is(err, session.ErrSessionSuperseded):
		// The identity is stored; only the automatic login is dropped.
		a.logger.Warn(ctx, "session changed during registration, not logging in", "identity", username)
		return nil
	case err != nil:
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (a *authService) Login(ctx context.Context, username string, secret []byte) error {
	if username == "" || len(secret) == 0 {
		return fmt.Errorf("%w: username and secret are required", common.ErrInvalidInput)
	}

	ticket := a.sessions.Begin()

	rec, err := loadIdentity(ctx, metadata.NewSQLiteRepository(a.db), username)
	if err != nil {
		return err
	}

	key, err := unlockIdentity(ctx, rec, secret)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			a.logger.Warn(ctx, "login rejected", "identity", username)
		}
		return err
	}

	if err := a.sessions.Establish(ticket, username, key); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) {
	a.sessions.Logout()
}

// ChangeSecret verifies oldSecret, generates a new salt and key and re-seals
// the identity check and every entry of the active identity in a single
// transaction. The transaction runs inside session.Manager.Rekey, so entries
// written concurrently are either re-sealed by it or sealed with the new key.
// An entry that cannot be opened with the old key aborts the change.
func (a *authService) ChangeSecret(ctx context.Context, oldSecret, newSecret []byte) error {
	username, err := a.sessions.ActiveIdentity()
	if err != nil {
		return err
	}
	if len(newSecret) == 0 {
		return fmt.Errorf("%w: new secret is required", common.ErrInvalidInput)
	}

	ticket := a.sessions.Begin()

	rec, err := loadIdentity(ctx, metadata.NewSQLiteRepository(a.db), username)
	if err != nil {
		return err
	}

	oldKey, err := unlockIdentity(ctx, rec, oldSecret)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(oldKey)

	newRec, newKey, err := newIdentity(ctx, username, newSecret, a.kdf)
	if err != nil {
		return err
	}

	resealed := 0
	err = a.sessions.Rekey(ticket, newKey, func(active string) error {
		if active != username {
			return session.ErrSessionSuperseded
		}
		return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			entryRepo := entries.NewSQLiteRepository(tx)
			list, err := entryRepo.ListByOwner(ctx, username)
			if err != nil {
				return err
			}

			for _, e := range list {
				e.Envelope, err = reseal(e, oldKey, newKey)
				if err != nil {
					return err
				}
				if err := entryRepo.UpdateEnvelope(ctx, e); err != nil {
					return err
				}
				resealed++
			}

			data, err := models.MarshalIdentity(newRec)
			if err != nil {
				return fmt.Errorf("encode identity: %w", err)
			}
			return metadata.NewSQLiteRepository(tx).Set(ctx, models.IdentityKey(username), data)
		})
	})
	if err != nil {
		return fmt.Errorf("change secret: %w", err)
	}

	a.logger.Info(ctx, "secret changed", "identity", username, "resealed", resealed)
	return nil
}

// DeleteIdentity removes the identity and all of its entries after checking
// the secret. The session is closed if it belonged to that identity.
func (a *authService) DeleteIdentity(ctx context.Context, username string, secret []byte) error {
	rec, err := loadIdentity(ctx, metadata.NewSQLiteRepository(a.db), username)
	if err != nil {
		return err
	}

	key, err := unlockIdentity(ctx, rec, secret)
	if err != nil {
		return err
	}
	memguard.WipeBytes(key)

	var removed int64
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := entries.NewSQLiteRepository(tx).DeleteByOwner(ctx, username)
		if err != nil {
			return err
		}
		removed = n
		return metadata.NewSQLiteRepository(tx).Delete(ctx, models.IdentityKey(username))
	})
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if active, err := a.sessions.ActiveIdentity(); err == nil && active == username {
		a.sessions.Logout()
	}

	a.logger.Info(ctx, "identity deleted", "identity", username, "entries", removed)
	return nil
}

func (a *authService) Identities(ctx context.Context) ([]string, error) {
	all, err := metadata.NewSQLiteRepository(a.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	names := make([]string, 0, len(all))
	for key := range all {
		if name, ok := models.IdentityFromKey(key); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (a *authService) IsSessionActive() bool {
	return a.sessions.IsActive()
}

func (a *authService) ActiveIdentity() (string, error) {
	return a.sessions.ActiveIdentity()
}

// newIdentity creates a record with a fresh salt and returns it together with
// the derived key. The caller owns the key.
func newIdentity(ctx context.Context, username string, secret []byte, kdf cryptox.KDFParams) (*models.IdentityRecord, []byte, error) {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, nil, err
	}

	key, err := deriveKey(ctx, secret, salt, kdf)
	if err != nil {
		return nil, nil, err
	}

	check, err := cryptox.SealWithAAD([]byte(models.IdentityCheckMarker), key, models.IdentityAAD(username))
	if err != nil {
		memguard.WipeBytes(key)
		return nil, nil, fmt.Errorf("seal identity check: %w", err)
	}

	return &models.IdentityRecord{
		SchemaVersion: models.IdentitySchemaVersion,
		Username:      username,
		Salt:          salt,
		KDF:           kdf,
		Check:         *check,
	}, key, nil
}

// loadIdentity reads and decodes a stored identity record.
func loadIdentity(ctx context.Context, repo metadata.Repository, username string) (*models.IdentityRecord, error) {
	data, err := repo.Get(ctx, models.IdentityKey(username))
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if data == nil {
		return nil, common.ErrNotRegistered
	}

	rec, err := models.UnmarshalIdentity(data)
	if err != nil {
		return nil, common.NewCorruptRecordError(models.IdentityKey(username), err)
	}
	if rec.Username != username {
		return nil, common.NewCorruptRecordError(models.IdentityKey(username),
			fmt.Errorf("record names identity %q", rec.Username))
	}
	return rec, nil
}

// unlockIdentity derives the key for rec and proves it by opening the check
// envelope. The only way to learn that a secret is wrong is the failed open.
func unlockIdentity(ctx context.Context, rec *models.IdentityRecord, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, common.ErrInvalidCredentials
	}

	key, err := deriveKey(ctx, secret, rec.Salt, rec.KDF)
	if err != nil {
		return nil, err
	}

	marker, err := cryptox.OpenWithAAD(&rec.Check, key, models.IdentityAAD(rec.Username))
	if err != nil {
		memguard.WipeBytes(key)
		if errors.Is(err, cryptox.ErrAuthentication) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.NewCorruptRecordError(models.IdentityKey(rec.Username), err)
	}
	if string(marker) != models.IdentityCheckMarker {
		memguard.WipeBytes(key)
		return nil, common.NewCorruptRecordError(models.IdentityKey(rec.Username),
			errors.New("unexpected identity check marker"))
	}
	return key, nil
}

// reseal opens an entry envelope with oldKey and seals the plaintext again
// with newKey, returning the new binary envelope.
func reseal(e *models.Entry, oldKey, newKey []byte) ([]byte, error) {
	plain, err := openEntry(e, oldKey)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plain)

	env, err := cryptox.SealWithAAD(plain, newKey, models.EntryAAD(e.ID))
	if err != nil {
		return nil, fmt.Errorf("seal entry %s: %w", e.ID, err)
	}
	return env.MarshalBinary()
}
