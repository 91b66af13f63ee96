package core

import "errors"

// Run errors. Callers classify with errors.Is; MapError turns them into codes.
var (
	// ErrUnresolved marks an event that names no known entity. It is a skip, not a failure.
	ErrUnresolved = errors.New("no entity matches object name")

	// ErrMissingObject marks an event without a bucket or object name. Also a skip.
	ErrMissingObject = errors.New("event has no bucket or object name")

	// ErrUnknownEntity means the resolver produced a name the registry does not know.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrLoad wraps any failure of the CSV load into the temp table.
	ErrLoad = errors.New("load failed")

	// ErrAppend wraps any failure of the transform-and-append statement.
	ErrAppend = errors.New("append failed")

	// ErrRunPanic wraps a panic recovered inside a run.
	ErrRunPanic = errors.New("run panicked")
)

// IsSkip reports whether err is an expected, non-fatal skip.
func IsSkip(err error) bool {
	return errors.Is(err, ErrUnresolved) || errors.Is(err, ErrMissingObject)
}
