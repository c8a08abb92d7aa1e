package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the file is absent and
	// creation was not requested.
	ErrDatabaseNotFound = errors.New("history database not found")

	// ErrLocked is returned when another process holds the write lock.
	ErrLocked = errors.New("history database is locked by another process")

	// ErrNotEnoughRuns is returned when a comparison needs two runs.
	ErrNotEnoughRuns = errors.New("at least two saved runs are required")

	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("run not found")
)
