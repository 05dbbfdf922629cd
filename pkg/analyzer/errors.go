package analyzer

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes the two failure classes of an analysis call
type ErrorKind int

const (
	// MalformedInput means the input is not analyzable text at all
	MalformedInput ErrorKind = iota + 1
	// InternalExtraction means the pipeline reached an inconsistent state
	InternalExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInput:
		return "malformed input"
	case InternalExtraction:
		return "internal extraction"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrInternalExtraction = errors.New("internal extraction error")
)

// AnalysisError is the single failure surfaced by Analyze.
// No partial bundle ever accompanies it.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an AnalysisError against the kind sentinels
func (e *AnalysisError) Is(target error) bool {
	switch target {
	case ErrMalformedInput:
		return e.Kind == MalformedInput
	case ErrInternalExtraction:
		return e.Kind == InternalExtraction
	}
	return false
}

func malformed(format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: MalformedInput, Message: fmt.Sprintf(format, args...)}
}

func internal(err error, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: InternalExtraction, Message: fmt.Sprintf(format, args...), Err: err}
}
