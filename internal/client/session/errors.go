package session

import "errors"

var (
	// ErrNoActiveSession is returned when the key is requested while logged out
	// or after expiry.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionSuperseded is returned by Establish when the ticket is stale.
	ErrSessionSuperseded = errors.New("session changed while establishing")
	// ErrInvalidConfig is returned by NewManager for inconsistent options.
	ErrInvalidConfig = errors.New("invalid session configuration")
	// ErrEmptyKey is returned by Establish for an empty key or identity.
	ErrEmptyKey = errors.New("empty key or identity")
)
