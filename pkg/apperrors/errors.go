package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrMalformedInput         = errors.New("sql text could not be tokenized")
	ErrFingerprintCollision   = errors.New("fingerprint collision between structurally different templates")
	ErrSnapshotNotConfigured  = errors.New("snapshot database is not configured")
	ErrAuthorityMapEmpty      = errors.New("authority map contains no executors")
	ErrAuthorityWeightInvalid = errors.New("authority weight must be within [0,1]")
)
