package domain

import "errors"

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrValidation         = errors.New("validation failed")

	// ErrGone is returned by a push channel when the target connection no
	// longer exists on the transport side.
	ErrGone = errors.New("connection gone")
)
