package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedSourceHost is returned by ResolveSource for hosts outside the
// allow-list. Adapters treat it as "no determinable source", never as a failure.
var ErrUnsupportedSourceHost = errors.New("unsupported source host")

// ErrUndetectedFormat is returned when no format was given and none could be
// detected from the sidecar content
var ErrUndetectedFormat = errors.New("could not detect metadata format")

// ParseError reports a sidecar that is not well-formed for its format
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s metadata: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ViolationKind classifies a single schema violation
type ViolationKind string

const (
	ViolationMissing    ViolationKind = "missing"
	ViolationWrongType  ViolationKind = "wrong_type"
	ViolationOutOfRange ViolationKind = "out_of_range"
)

// Violation describes one field that does not match the expected shape.
// Path uses dotted keys with bracketed indexes, e.g. "source.gid" or "tags[2]".
type Violation struct {
	Path   string        `json:"path"`
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Kind, v.Detail)
}

// ValidationError reports a well-formed sidecar that violates the shape
// required by its format. It lists every violation found.
type ValidationError struct {
	Format     Format
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("invalid %s metadata: %s", e.Format, strings.Join(parts, "; "))
}

// Fields returns the paths of all violated fields
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Path)
	}
	return fields
}
