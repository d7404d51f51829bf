package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/client/services"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/logging"
)

// Activity is the part of the session manager the REPL uses.
type Activity interface {
	Touch() error
	Status() session.Status
}

// Deps are the collaborators of App.
type Deps struct {
	Auth     services.AuthService
	Entries  services.EntryService
	Bundles  services.BundleService
	Session  Activity
	In       io.Reader
	Out      io.Writer
	Notifier *Notifier
	Logger   logging.Logger
}

type App struct {
	auth    services.AuthService
	entries services.EntryService
	bundles services.BundleService
	session Activity
	reader  *bufio.Reader
	out     io.Writer
	notify  *Notifier
	logger  logging.Logger
}

// NewApp builds the REPL application. A nil Notifier writes to d.Out. Input
// typed into any prompt counts as session activity.
func NewApp(d Deps) *App {
	n := d.Notifier
	if n == nil {
		n = NewNotifier(d.Out)
	}
	l := d.Logger
	if l == nil {
		l = logging.Nop()
	}
	a := &App{
		auth:    d.Auth,
		entries: d.Entries,
		bundles: d.Bundles,
		session: d.Session,
		out:     d.Out,
		notify:  n,
		logger:  l,
	}
	a.reader = bufio.NewReader(&activityReader{r: d.In, touch: a.touch})
	return a
}

// Run blocks in the REPL until exit or end of input, then drops the session.
func (a *App) Run(ctx context.Context) {
	defer a.auth.Logout(ctx)

	a.notify.Printf("Welcome to the journal (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, a.reader, a.notify)
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsSessionActive()
}

// touch records activity. A session that already lapsed stays logged out.
func (a *App) touch() {
	_ = a.session.Touch()
}

// readSecret reads a secret and records the keystrokes as activity, which the
// no-echo terminal path does not pass through a.reader.
func (a *App) readSecret(prompt string) ([]byte, error) {
	secret, err := getPassword(a.reader, prompt, a.out)
	if err == nil {
		a.touch()
	}
	return secret, err
}

func (a *App) getStatus() string {
	st := a.session.Status()
	switch st.State {
	case session.StateActive, session.StateWarning:
		return fmt.Sprintf("(%s %s)", st.Identity, st.Remaining.Round(time.Second))
	default:
		return ""
	}
}
