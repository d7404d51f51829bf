package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) readNewSecret(prompt string) ([]byte, error) {
	secret, err := a.readSecret(prompt)
	if err != nil {
		return nil, err
	}
	repeat, err := a.readSecret("Repeat secret")
	if err != nil {
		memguard.WipeBytes(secret)
		return nil, err
	}
	defer memguard.WipeBytes(repeat)

	if len(secret) == 0 || !bytes.Equal(secret, repeat) {
		memguard.WipeBytes(secret)
		return nil, fmt.Errorf("%w: secrets are empty or do not match", common.ErrInvalidInput)
	}
	return secret, nil
}

// Register prompts for an identity name and a new secret, creates the
// identity and logs in as it.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter identity name", a.out)
	if err != nil {
		return err
	}

	secret, err := a.readNewSecret("Enter secret")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(secret)

	if err := a.auth.Register(ctx, userName, secret); err != nil {
		return err
	}

	if !a.isLoggedIn() {
		a.notify.Printf("Registered %s; log in to start a session\n", userName)
		return nil
	}
	a.notify.Printf("Registered and logged in as %s\n", userName)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter identity name", a.out)
	if err != nil {
		return err
	}

	secret, err := a.readSecret("Enter secret")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(secret)

	if err := a.auth.Login(ctx, userName, secret); err != nil {
		return err
	}

	a.notify.Printf("Logged in as %s\n", userName)
	return nil
}

// Logout drops the session key.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return session.ErrNoActiveSession
	}
	a.auth.Logout(ctx)
	a.notify.Printf("Logged out\n")
	return nil
}

// Status prints the session state and, when logged out, the identities that
// can log in.
func (a *App) Status(ctx context.Context) error {
	st := a.session.Status()
	switch st.State {
	case session.StateActive, session.StateWarning:
		a.notify.Printf("%s: %s, expires in %s\n", st.State, st.Identity, st.Remaining.Round(time.Second))
	default:
		a.notify.Printf("%s\n", st.State)
		names, err := a.auth.Identities(ctx)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			a.notify.Printf("Identities: %s\n", strings.Join(names, ", "))
		}
	}
	return nil
}

// Passwd changes the secret of the logged-in identity.
func (a *App) Passwd(ctx context.Context) error {
	if !a.isLoggedIn() {
		return session.ErrNoActiveSession
	}

	oldSecret, err := a.readSecret("Current secret")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(oldSecret)

	newSecret, err := a.readNewSecret("New secret")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(newSecret)

	if err := a.auth.ChangeSecret(ctx, oldSecret, newSecret); err != nil {
		return err
	}

	a.notify.Printf("Secret changed\n")
	return nil
}
