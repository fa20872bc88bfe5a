package template

import (
	"errors"
	"fmt"
)

// Template compilation errors
var (
	// ErrEmpty indicates a zero-length template
	ErrEmpty = errors.New("empty template")

	// ErrLeadingGap indicates the template starts with the gap marker, leaving
	// no anchor character to spawn a match on
	ErrLeadingGap = errors.New("gap marker at start of template")

	// ErrTrailingGap indicates the gap marker is the last character, so no
	// literal could ever close the gap
	ErrTrailingGap = errors.New("gap marker at end of template")

	// ErrMultipleGaps indicates more than one gap marker
	ErrMultipleGaps = errors.New("more than one gap marker")

	// ErrInvalidUTF8 indicates the template is not valid UTF-8
	ErrInvalidUTF8 = errors.New("template is not valid UTF-8")
)

// Error wraps a compilation failure with the offending template and the byte
// offset where the problem was found.
type Error struct {
	Template string
	Pos      int
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("template compilation failed: %v", e.Err)
	}
	return fmt.Sprintf("template compilation failed for %q at offset %d: %v", e.Template, e.Pos, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}
