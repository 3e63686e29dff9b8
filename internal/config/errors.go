package config

import "fmt"

// Error is a configuration error: a missing key, a malformed value or an
// unrecognized enumeration value. It is always fatal and is reported before
// any side effect happens.
type Error struct {
	Field  string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func missing(field string) *Error {
	return &Error{Field: field, Reason: "is required"}
}

func invalid(field, value, reason string) *Error {
	return &Error{Field: field, Value: value, Reason: reason}
}

// prefixed returns a copy of err with parent prepended to its field path.
func prefixed(parent string, err error) error {
	if cfgErr, ok := err.(*Error); ok {
		cp := *cfgErr
		cp.Field = parent + "." + cp.Field
		return &cp
	}
	return fmt.Errorf("%s: %w", parent, err)
}
