package model

import "errors"

// Sentinel errors implementing the error taxonomy of SPEC_FULL.md §7.
// Components wrap these with fmt.Errorf("...: %w", ErrX) and callers
// distinguish them with errors.Is.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("not found")
	ErrTransientBackend     = errors.New("transient backend error")
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrModelBootstrapIncomplete = errors.New("model bootstrap incomplete")
)
