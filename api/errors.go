package api

import "errors"

// ErrorOutofMemory the OS refused to map more pages.
var ErrorOutofMemory = errors.New("palloc.outofmemory")

// ErrorReleased operation attempted on a released allocator.
var ErrorReleased = errors.New("palloc.released")

// ErrorBadpointer pointer does not belong to this allocator.
var ErrorBadpointer = errors.New("palloc.badpointer")
