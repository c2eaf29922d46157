package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrJobNotProcessing is returned when a terminal write targets a job that already finished.
	ErrJobNotProcessing = errors.New("job is not processing")
)
