package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors. These are distinguished internally for
	// audit purposes but must collapse to a generic authentication
	// failure at the HTTP boundary.
	ErrAccountLocked   = errors.New("account is temporarily locked")
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrServiceUnavailable signals a collaborator (the user store)
	// could not be reached during a step that requires it. Never
	// mapped to allow or deny; authentication fails closed.
	ErrServiceUnavailable = errors.New("service unavailable")
)
