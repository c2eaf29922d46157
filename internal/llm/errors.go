package llm

import "fmt"

// ErrParse means a provider answered but the answer did not have the expected shape.
type ErrParse struct {
	error
}

func NewErrParse(format string, args ...any) *ErrParse {
	return &ErrParse{fmt.Errorf(format, args...)}
}

// ErrAllProvidersFailed carries the cause of each attempt of a Fallback.
type ErrAllProvidersFailed struct {
	Task          string
	PrimaryName   string
	SecondaryName string
	Primary       error
	Secondary     error
}

func (e *ErrAllProvidersFailed) Error() string {
	return fmt.Sprintf("Both providers failed to %s. %s: %v | %s: %v",
		e.Task, DisplayName(e.PrimaryName), e.Primary, DisplayName(e.SecondaryName), e.Secondary)
}
