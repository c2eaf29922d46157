package ingestion

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrScannerNotInstalled is returned when the gitleaks binary cannot be found.
var ErrScannerNotInstalled = errors.New("gitleaks CLI not found on PATH")

type ErrInvalidRepositoryURL struct {
	error
}

func NewErrInvalidRepositoryURL(message string) *ErrInvalidRepositoryURL {
	return &ErrInvalidRepositoryURL{errors.New(message)}
}

type ErrCloneFailed struct {
	error
}

func NewErrCloneFailed(url string, cause error) *ErrCloneFailed {
	return &ErrCloneFailed{errors.Wrap(cause, fmt.Sprintf("failed to clone repository %s", url))}
}
