package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Notifier prints session events coming from the session manager's timer
// goroutine. Writes are serialized with the REPL output through mu.
type Notifier struct {
	mu   *sync.Mutex
	out  io.Writer
	warn *color.Color
	bad  *color.Color
}

// NewNotifier returns a Notifier writing to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{
		mu:   &sync.Mutex{},
		out:  out,
		warn: color.New(color.FgYellow, color.Bold),
		bad:  color.New(color.FgRed, color.Bold),
	}
}

// Warning is the session.OnWarning callback.
func (n *Notifier) Warning(identity string, remaining time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warn.Fprintf(n.out, "\n[%s] session expires in %s; enter any command to stay logged in\n",
		identity, remaining.Round(time.Second))
}

// Expired is the session.OnExpire callback.
func (n *Notifier) Expired(identity string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bad.Fprintf(n.out, "\n[%s] session expired, logged out\n", identity)
}

// Errorf prints a failed command.
func (n *Notifier) Errorf(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bad.Fprintf(n.out, format+"\n", args...)
}

// Printf prints regular output.
func (n *Notifier) Printf(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, format, args...)
}
