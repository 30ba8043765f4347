package services

import "errors"

// Stable failure kinds surfaced to the transport layer. Handlers map
// them onto protocol status codes; messages wrapped around them stay
// human-readable.
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrConflict         = errors.New("conflict")
)
