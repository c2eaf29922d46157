package llm

import (
	"context"
	"fmt"

	"github.com/aerae/accelerator/pkg/metrics"
	"go.uber.org/zap"
)

// Result is the answer of a Fallback together with which provider produced it.
type Result struct {
	Text           string
	Provider       string
	FallbackUsed   bool
	FallbackReason *string
}

// Fallback tries Primary once and, when that attempt fails, Secondary once.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	// Task names the work in error messages, e.g. "parse PDF".
	Task string
}

func NewFallback(task string, primary, secondary Provider) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, Task: task}
}

// Generate runs the request. validate, when set, is applied to each answer and its error
// counts as a failure of that attempt.
func (f *Fallback) Generate(ctx context.Context, req Request, validate func(string) error) (*Result, error) {
	logger := zap.S().Named("llm_fallback")

	text, primaryErr := attempt(ctx, f.Primary, req, validate)
	if primaryErr == nil {
		return &Result{Text: text, Provider: f.Primary.Name()}, nil
	}

	logger.Warnf("%s failed (%v), falling back to %s", DisplayName(f.Primary.Name()), primaryErr, DisplayName(f.Secondary.Name()))
	metrics.IncreaseLLMFallbackMetric(f.Task)

	text, secondaryErr := attempt(ctx, f.Secondary, req, validate)
	if secondaryErr != nil {
		logger.Errorf("%s also failed: %v", DisplayName(f.Secondary.Name()), secondaryErr)
		return nil, &ErrAllProvidersFailed{
			Task:          f.Task,
			PrimaryName:   f.Primary.Name(),
			SecondaryName: f.Secondary.Name(),
			Primary:       primaryErr,
			Secondary:     secondaryErr,
		}
	}

	reason := fmt.Sprintf("%s unavailable: %v", DisplayName(f.Primary.Name()), primaryErr)
	return &Result{
		Text:           text,
		Provider:       f.Secondary.Name(),
		FallbackUsed:   true,
		FallbackReason: &reason,
	}, nil
}

func attempt(ctx context.Context, p Provider, req Request, validate func(string) error) (text string, err error) {
	// a panicking client counts as a failed attempt
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", DisplayName(p.Name()), r)
		}
	}()

	text, err = p.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if validate != nil {
		if err := validate(text); err != nil {
			return "", err
		}
	}
	return text, nil
}
