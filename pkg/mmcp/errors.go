package mmcp

import "errors"

// Sentinel codec errors. Decode wraps one of these with fmt.Errorf's %w
// so callers can classify a failure with errors.Is without string
// matching.
var (
	// ErrUnknownTag is returned when the frame's What byte does not match
	// any declared message kind. The frame is dropped by the caller; the
	// decoder itself never panics or guesses.
	ErrUnknownTag = errors.New("mmcp: unknown tag")

	// ErrTruncated is returned when the buffer ends before a required
	// field has been fully read.
	ErrTruncated = errors.New("mmcp: truncated frame")

	// ErrBadUTF8 is returned when a length-prefixed string field contains
	// invalid UTF-8.
	ErrBadUTF8 = errors.New("mmcp: invalid utf-8")

	// ErrEnumOutOfRange is returned when a 4-byte enum ordinal falls
	// outside the declared range for its type.
	ErrEnumOutOfRange = errors.New("mmcp: enum out of range")
)
