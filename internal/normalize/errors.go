package normalize

import (
	"errors"
	"fmt"
)

// Sentinel failures for a normalization run. Both are fatal for the whole
// run: no partial output is produced. Value-level parse problems are not
// errors at all; they resolve to absent values and reduced confidence.
var (
	// ErrUnsupportedFormat indicates the declared input format is not one
	// of csv, json, hl7, fhir.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrMalformedInput indicates a structurally invalid payload, such as
	// unparsable JSON or empty tabular input.
	ErrMalformedInput = errors.New("malformed input")
)

// Error carries enough context (format, stage) for the caller to log and
// mark the enclosing dataset failed.
type Error struct {
	Format Format
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s (stage %s): %v", e.Format, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failure(format Format, stage string, err error) *Error {
	return &Error{Format: format, Stage: stage, Err: err}
}
