package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrEmailTaken       = errors.New("email already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrIndexUnavailable = errors.New("search index unavailable")
	ErrIndexSync        = errors.New("search index out of sync")
)
