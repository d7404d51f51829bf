// Package session holds the derived key of the logged-in identity for a
// bounded, sliding period of inactivity.
//
// A Manager moves through these states:
//
//	LoggedOut --Establish--> Active
//	Active    --Touch------> Active        (expiry slides to now+duration)
//	Active    --timer------> Warning       (one OnWarning callback)
//	Warning   --Touch------> Active
//	Active|Warning --timer-> Expired -> LoggedOut (key dropped, OnExpire callback)
//	Active|Warning --Logout-> LoggedOut
//
// The key is kept in a memguard enclave and only exposed to callers for the
// duration of WithKey. Teardown waits for running WithKey calls, so a key is
// never dropped while a seal or open is using it.
//
// Deriving a key is slow. Callers take a Ticket with Begin before deriving and
// pass it to Establish; if the session was logged out or expired in between,
// Establish refuses and wipes the late key.
package session
