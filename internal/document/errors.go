package document

import "fmt"

type ErrInvalidDocument struct {
	error
}

func NewErrInvalidDocument(format string, args ...any) *ErrInvalidDocument {
	return &ErrInvalidDocument{fmt.Errorf(format, args...)}
}
