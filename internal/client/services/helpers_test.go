package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/client/storage"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/dmitrijs2005/gophjournal/internal/logging"
	"github.com/stretchr/testify/require"
)

const (
	testUser   = "alice-id"
	testSecret = "CorrectHorse1"
	badSecret  = "WrongPassword"
)

// manualClock never fires timers; expiry is observed through Now only.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(time.Duration, func()) session.Timer { return noopTimer{} }

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *sql.DB
	clock    *manualClock
	sessions *session.Manager
	auth     AuthService
	entries  EntryService
	bundles  BundleService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &manualClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	mgr, err := session.NewManager(session.WithClock(clock), session.WithDuration(10*time.Minute))
	require.NoError(t, err)
	t.Cleanup(mgr.Logout)

	log := logging.Nop()
	entrySvc := NewEntryService(db, mgr, log).(*entryService)
	entrySvc.now = clock.Now
	bundleSvc := NewBundleService(db, mgr, log).(*bundleService)
	bundleSvc.now = clock.Now

	return &testEnv{
		db:       db,
		clock:    clock,
		sessions: mgr,
		auth:     NewAuthService(db, mgr, cryptox.FastKDFParams(), log),
		entries:  entrySvc,
		bundles:  bundleSvc,
	}
}

func (e *testEnv) register(t *testing.T, user, secret string) {
	t.Helper()
	require.NoError(t, e.auth.Register(context.Background(), user, []byte(secret)))
}

func (e *testEnv) addNotes(t *testing.T, n int) []*models.NoteView {
	t.Helper()
	out := make([]*models.NoteView, 0, n)
	for i := 0; i < n; i++ {
		v, err := e.entries.Add(context.Background(), models.Note{
			Title: "note " + string(rune('A'+i)),
			Text:  "body",
		})
		require.NoError(t, err)
		out = append(out, v)
		e.clock.Advance(time.Millisecond)
	}
	return out
}

func (e *testEnv) storedEnvelope(t *testing.T, id string) []byte {
	t.Helper()
	var env []byte
	require.NoError(t, e.db.QueryRow(`SELECT envelope FROM entries WHERE id = ?`, id).Scan(&env))
	return env
}

func (e *testEnv) setEnvelope(t *testing.T, id string, env []byte) {
	t.Helper()
	_, err := e.db.Exec(`UPDATE entries SET envelope = ? WHERE id = ?`, env, id)
	require.NoError(t, err)
}

// corrupt flips one bit in the stored ciphertext of id.
func (e *testEnv) corrupt(t *testing.T, id string) {
	t.Helper()
	env, err := cryptox.DecodeEnvelope(e.storedEnvelope(t, id))
	require.NoError(t, err)
	env.Ciphertext[0] ^= 0x01
	data, err := env.MarshalBinary()
	require.NoError(t, err)
	e.setEnvelope(t, id, data)
}

func (e *testEnv) storedIdentity(t *testing.T, user string) *models.IdentityRecord {
	t.Helper()
	var data []byte
	require.NoError(t, e.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, models.IdentityKey(user)).Scan(&data))
	rec, err := models.UnmarshalIdentity(data)
	require.NoError(t, err)
	return rec
}
