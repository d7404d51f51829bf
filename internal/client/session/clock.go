package session

import "time"

// Timer is the part of *time.Timer the manager uses.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the state machine can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
