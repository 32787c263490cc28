// Package repository persists reservations in MySQL.  The sentinel values
// below allow higher layers such as handlers to distinguish between
// different failure scenarios.
package repository

import "errors"

// ErrNotFound is returned when the requested reservation does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as approving a reservation that was already
// canceled. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
