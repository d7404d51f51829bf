package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/services"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/client/storage"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	sessions *session.Manager
	auth     services.AuthService
	entries  services.EntryService
	bundles  services.BundleService
}

func newJournal(t *testing.T, opts ...session.Option) *journal {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mgr, err := session.NewManager(opts...)
	require.NoError(t, err)
	t.Cleanup(mgr.Logout)

	return &journal{
		sessions: mgr,
		auth:     services.NewAuthService(db, mgr, cryptox.FastKDFParams(), nil),
		entries:  services.NewEntryService(db, mgr, nil),
		bundles:  services.NewBundleService(db, mgr, nil),
	}
}

func (j *journal) run(t *testing.T, lines ...string) string {
	t.Helper()
	return j.runInput(t, strings.NewReader(strings.Join(lines, "\n")+"\n"))
}

func (j *journal) runInput(t *testing.T, in io.Reader) string {
	t.Helper()
	fakeTerminal(t, false, nil)

	var out bytes.Buffer
	app := NewApp(Deps{
		Auth:    j.auth,
		Entries: j.entries,
		Bundles: j.bundles,
		Session: j.sessions,
		In:      in,
		Out:     &out,
	})
	app.Run(context.Background())
	return out.String()
}

// stepClock only moves when told to; its timers never fire, so expiry is
// observed through Now.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) AfterFunc(time.Duration, func()) session.Timer { return idleTimer{} }

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type typedLine struct {
	wait time.Duration
	text string
}

// typist delivers one line per Read, advancing the clock by the line's wait
// first, like a user typing at a terminal.
type typist struct {
	clock *stepClock
	lines []typedLine
}

func (ty *typist) Read(p []byte) (int, error) {
	if len(ty.lines) == 0 {
		return 0, io.EOF
	}
	l := ty.lines[0]
	ty.lines = ty.lines[1:]
	ty.clock.Advance(l.wait)
	return copy(p, l.text+"\n"), nil
}

func typedAdd(titleWait time.Duration) []typedLine {
	return []typedLine{
		{0, "register"}, {0, "alice"}, {0, "pw"}, {0, "pw"},
		{4 * time.Minute, "add"},
		{titleWait, "Long entry"},
		{4 * time.Minute, "first paragraph"},
		{4 * time.Minute, "second paragraph"},
		{4 * time.Minute, ""},
		{4 * time.Minute, "slow"},
		{time.Second, "list"},
		{0, "exit"},
	}
}

func TestApp_PromptInputKeepsSessionAlive(t *testing.T) {
	clock := &stepClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	j := newJournal(t, session.WithClock(clock), session.WithDuration(5*time.Minute), session.WithWarningThreshold(time.Minute))

	out := j.runInput(t, &typist{clock: clock, lines: typedAdd(4 * time.Minute)})

	assert.Contains(t, out, "Added ")
	assert.Contains(t, out, "Long entry [slow]")
	assert.NotContains(t, out, "Not logged in")
}

func TestApp_IdlePromptStillExpires(t *testing.T) {
	clock := &stepClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	j := newJournal(t, session.WithClock(clock), session.WithDuration(5*time.Minute), session.WithWarningThreshold(time.Minute))

	out := j.runInput(t, &typist{clock: clock, lines: typedAdd(6 * time.Minute)})

	assert.NotContains(t, out, "Added ")
	assert.Contains(t, out, "Not logged in")
}

func TestApp_RegisterAddListLogin(t *testing.T) {
	j := newJournal(t)

	out := j.run(t,
		"register", "alice", "CorrectHorse1", "CorrectHorse1",
		"add", "First day", "It rained.", "", "weather, mood",
		"list",
		"logout",
		"list",
		"status",
		"login", "alice", "WrongPassword",
		"login", "alice", "CorrectHorse1",
		"status",
		"exit",
	)

	assert.Contains(t, out, "Registered and logged in as alice")
	assert.Contains(t, out, "Added ")
	assert.Contains(t, out, "First day [weather, mood]")
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, out, "Not logged in")
	assert.Contains(t, out, "Invalid credentials")
	assert.Contains(t, out, "Logged in as alice")
	assert.Contains(t, out, "active: alice, expires in")
	assert.Contains(t, out, "Identities: alice")
	assert.False(t, j.sessions.IsActive(), "Run logs out on exit")
}

func TestApp_RegisterSecretsMustMatch(t *testing.T) {
	j := newJournal(t)

	out := j.run(t, "register", "alice", "one", "two", "exit")
	assert.Contains(t, out, "do not match")

	err := j.auth.Login(context.Background(), "alice", []byte("one"))
	require.Error(t, err)
}

func TestApp_ShowAndDelete(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	require.NoError(t, j.auth.Register(ctx, "alice", []byte("pw")))
	v, err := j.entries.Add(ctx, models.Note{Title: "Trip", Text: "Went to the sea.", Tags: []string{"travel"}})
	require.NoError(t, err)

	out := j.run(t, "show "+v.ID, "delete "+v.ID, "show "+v.ID, "exit")

	assert.Contains(t, out, "Title:   Trip")
	assert.Contains(t, out, "Tags:    travel")
	assert.Contains(t, out, "Went to the sea.")
	assert.Contains(t, out, "Deleted "+v.ID)
	assert.Contains(t, out, "No such entry")
}

func TestApp_PasswdChangesSecret(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	require.NoError(t, j.auth.Register(ctx, "alice", []byte("old-secret")))

	out := j.run(t, "passwd", "old-secret", "new-secret", "new-secret", "exit")
	assert.Contains(t, out, "Secret changed")

	require.NoError(t, j.auth.Login(ctx, "alice", []byte("new-secret")))
}

func TestApp_ExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice.bundle.json")

	src := newJournal(t)
	out := src.run(t,
		"register", "alice", "pw", "pw",
		"add", "Exported note", "body", "", "",
		"export "+path,
		"exit",
	)
	assert.Contains(t, out, "Exported 1 entries of alice")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Exported note")

	dst := newJournal(t)
	out = dst.run(t,
		"import "+path, "pw",
		"login", "alice", "pw",
		"list",
		"exit",
	)
	assert.Contains(t, out, "Imported 1 entries of alice")
	assert.Contains(t, out, "Exported note")
}

func TestApp_ExportRequiresLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	j := newJournal(t)

	out := j.run(t, "export "+path, "exit")
	assert.Contains(t, out, "Not logged in")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
