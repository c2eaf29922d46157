package service

import (
	"fmt"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id string) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("invalid request: %s", message)}
}

type ErrProviderNotFound struct {
	error
}

func NewErrProviderNotFound(name string) *ErrProviderNotFound {
	return &ErrProviderNotFound{fmt.Errorf("unknown provider %q", name)}
}

// ErrGenerationFailed wraps a provider failure of a direct generation request.
type ErrGenerationFailed struct {
	error
}

func NewErrGenerationFailed(provider string, cause error) *ErrGenerationFailed {
	return &ErrGenerationFailed{fmt.Errorf("%s generation failed: %w", provider, cause)}
}

func (e *ErrGenerationFailed) Unwrap() error {
	return e.error
}

// ErrServiceUnavailable is returned when a job cannot be started because the service is
// shutting down.
type ErrServiceUnavailable struct {
	error
}

func NewErrServiceUnavailable(cause error) *ErrServiceUnavailable {
	return &ErrServiceUnavailable{fmt.Errorf("service unavailable: %w", cause)}
}

func (e *ErrServiceUnavailable) Unwrap() error {
	return e.error
}
