package domain

import "errors"

// Sentinel errors shared across services and adapters. Application-level
// checks (ErrNotOwner, ErrEventInPast, ErrDuplicateGuest) are raised before
// any store call; ErrPermissionDenied and ErrUnavailable originate from the
// remote store and are translated, never retried in a loop.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotOwner         = errors.New("not the event owner")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateGuest   = errors.New("guest already invited")
	ErrEventInPast      = errors.New("event date is in the past")
	ErrPermissionDenied = errors.New("permission denied by store")
	ErrUnavailable      = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)
