package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidState     = errors.New("operation not allowed in current job state")
	ErrValidation       = errors.New("invalid argument")
	ErrConflict         = errors.New("job is busy with another operation")
	ErrArtifactMissing  = errors.New("artifact not available")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)
