package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrDuplicatePath = errors.New("duplicate document path")
)
