package registry

import "errors"

// ErrNotFound reports that a query, alias, or digest resolved to nothing.
// It is user-facing and never fatal.
var ErrNotFound = errors.New("not found")

// ErrNoImageSource reports an ingest attempt with neither a local path
// nor a remote URL to read bytes from.
var ErrNoImageSource = errors.New("image has no usable path or url")
