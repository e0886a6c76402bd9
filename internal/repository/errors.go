package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// unique constraint hit
	ErrConflict = errors.New("conflict")
)
