package intelhex

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrMalformedLine         = errors.New("malformed line")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrUnsupportedRecordType = errors.New("unsupported record type")
	ErrBufferOverflow        = errors.New("buffer overflow")
	ErrImageTooLarge         = errors.New("image too large")
)

// LineError ties a failure to the source line that caused it.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineError(r Record, err error) error {
	return &LineError{
		Line: r.Line,
		Text: r.String(),
		Err:  err,
	}
}

// Kind names the class of err for metrics and logs: one of "ok",
// "invalid_input", "malformed_line", "checksum_mismatch",
// "unsupported_record_type", "buffer_overflow", "image_too_large" or "other".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMalformedLine):
		return "malformed_line"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrUnsupportedRecordType):
		return "unsupported_record_type"
	case errors.Is(err, ErrBufferOverflow):
		return "buffer_overflow"
	case errors.Is(err, ErrImageTooLarge):
		return "image_too_large"
	default:
		return "other"
	}
}
