// Package errors defines the fatal error taxonomy of a counting run. Every
// failure in the core is classified by a sentinel and tagged with the stage
// that produced it; the CLI maps the classification to an exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfig    = errors.New("configuration error")
	ErrFormat    = errors.New("format error")
	ErrIO        = errors.New("i/o error")
	ErrInvariant = errors.New("invariant violation")
	ErrSink      = errors.New("sink error")
)

// Stage names used when tagging errors.
const (
	StageStartup    = "startup"
	StageVocabulary = "vocabulary"
	StageIndex      = "index"
	StageArchive    = "archive"
	StageExtract    = "extract"
	StageOutput     = "output"
	StageSink       = "sink"
)

type StageError struct {
	Err     error
	Stage   string
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Err.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *StageError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, stage string, message string) *StageError {
	return &StageError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage string, format string, args ...any) *StageError {
	return &StageError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap classifies cause under sentinel. A nil cause yields nil.
func Wrap(sentinel error, stage string, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &StageError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Stage returns the stage recorded on err, or "" when err is unclassified.
func Stage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 2
	case errors.Is(err, ErrFormat):
		return 3
	case errors.Is(err, ErrIO):
		return 4
	case errors.Is(err, ErrInvariant):
		return 5
	case errors.Is(err, ErrSink):
		return 6
	default:
		return 1
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
