package landing

import "errors"

var (
	// ErrPageNotFound means no live page matches the given id or slug.
	ErrPageNotFound = errors.New("page not found")

	// ErrVersionConflict means another writer committed since the caller's
	// read. The caller must re-read and retry; the store never resolves the
	// race by last-write-wins.
	ErrVersionConflict = errors.New("page was modified concurrently, re-read and retry")

	// ErrInvalidTransition means the requested publication transition is not
	// allowed from the page's current state.
	ErrInvalidTransition = errors.New("invalid publication transition")
)
