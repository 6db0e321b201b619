package lines

import (
	"fmt"

	"github.com/pkg/errors"
)

// FormatError reports malformed or truncated ink data.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("lines: %s at offset %d", e.Reason, e.Offset)
}

// UnsupportedVersionError reports a well formed header with a version other
// than 3 or 5.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("lines: unsupported version %d", e.Version)
}

// IsFormatError reports whether err, or anything it wraps, is a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsUnsupportedVersion reports whether err, or anything it wraps, is an
// *UnsupportedVersionError.
func IsUnsupportedVersion(err error) bool {
	var ve *UnsupportedVersionError
	return errors.As(err, &ve)
}
