package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/common"
	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	touch()
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Passwd(ctx context.Context) error
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
}

const (
	helpLoggedOut = "Available commands: register, login, status, import <file>, help, exit"
	helpLoggedIn  = "Available commands: add, list, show <id>, delete <id>, passwd, export <file>, import <file>, status, logout, help, exit"
)

// runREPL reads one command per line from reader and dispatches it to a.
//
// Every non-empty line is reported as activity before the command runs, so a
// session in its warning period is kept alive by any input. Errors returned by
// handlers are printed and the loop continues. The loop exits on end of input,
// ctx cancellation, or "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out *Notifier) {
	for {
		if ctx.Err() != nil {
			return
		}
		out.Printf("journal %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			out.Printf("\n")
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		a.touch()

		cmd, args := parts[0], parts[1:]
		var cmdErr error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				out.Printf("%s\n", helpLoggedIn)
			} else {
				out.Printf("%s\n", helpLoggedOut)
			}
		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "add":
			cmdErr = a.Add(ctx)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "show", "delete", "export", "import":
			if len(args) != 1 {
				out.Printf("Usage: %s <%s>\n", cmd, argName(cmd))
				continue
			}
			cmdErr = dispatchWithArg(ctx, a, cmd, args[0])
		case "passwd":
			cmdErr = a.Passwd(ctx)
		case "exit", "quit":
			out.Printf("Bye!\n")
			return
		default:
			out.Printf("Unknown command: %s\n", cmd)
		}

		if cmdErr != nil {
			out.Errorf("%s", describeError(cmdErr))
		}
	}
}

func argName(cmd string) string {
	if cmd == "export" || cmd == "import" {
		return "file"
	}
	return "id"
}

func dispatchWithArg(ctx context.Context, a execIface, cmd, arg string) error {
	switch cmd {
	case "show":
		return a.Show(ctx, arg)
	case "delete":
		return a.Delete(ctx, arg)
	case "export":
		return a.Export(ctx, arg)
	default:
		return a.Import(ctx, arg)
	}
}

// describeError turns service errors into a line for the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		return "Not logged in (use 'login')"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, common.ErrNotRegistered):
		return "Unknown identity (use 'register')"
	case errors.Is(err, common.ErrAlreadyRegistered):
		return "Identity already registered"
	case errors.Is(err, common.ErrIdentityMismatch):
		return "Bundle identity differs from the local identity with the same name"
	case errors.Is(err, common.ErrorNotFound):
		return "No such entry"
	case errors.Is(err, common.ErrCorruptRecord):
		return fmt.Sprintf("Record is unreadable: %v", err)
	case errors.Is(err, cryptox.ErrDecoding):
		return fmt.Sprintf("Malformed data: %v", err)
	case errors.Is(err, common.ErrInvalidInput):
		return err.Error()
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
