package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would duplicate a natural key or
// recreate a singleton that already exists.
var ErrConflict = errors.New("already exists")
