package repository

import "errors"

// Sentinel errors returned by the repositories. Callers branch on them with
// errors.Is; the wrapped message carries the operation detail.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)
