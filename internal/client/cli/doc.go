// Package cli provides the interactive journal command-line client.
//
// App wires the auth, entry and bundle services into a read-eval-print loop.
// Every line the user enters counts as activity and slides the session
// expiry forward; the Notifier prints the expiry warning and the forced
// logout asynchronously while the prompt waits for input.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// input ends.
package cli
