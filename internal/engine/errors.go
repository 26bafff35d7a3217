package engine

import "errors"

var (
	// ErrSourceUnavailable means the time-series scan failed entirely; the
	// cycle aborts and the previously published snapshot stands.
	ErrSourceUnavailable = errors.New("engine: time-series source unavailable")

	// ErrEmptyUniverse means the reference cache returned zero instruments.
	// Valid only on the very first cycle; suspicious afterwards.
	ErrEmptyUniverse = errors.New("engine: instrument universe is empty")

	// ErrNoSnapshot means no snapshot has been published yet.
	ErrNoSnapshot = errors.New("engine: no snapshot published")
)
