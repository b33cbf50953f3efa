package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSchemaUnavailable = errors.New("schema unavailable")
	ErrVectorDisabled    = errors.New("vector index disabled")
	ErrAlreadyRunning    = errors.New("sync already running")
)
