package track

import (
	"context"
	"errors"

	"github.com/llehouerou/wavefeed/internal/errmsg"
)

var (
	// ErrAlreadyStarted is returned when Execute is called twice.
	ErrAlreadyStarted = errors.New("track: executor already started")
	// ErrNotSeekable is returned by SetPosition on tracks that cannot seek.
	ErrNotSeekable = errors.New("track: not seekable")
	// ErrExternalSeekRequired is reported when a seek is queued for a
	// decoder that has no seek support of its own.
	ErrExternalSeekRequired = errors.New("track: decoder cannot seek, external seek required")
	// ErrInterrupted can be returned by decoders that detect cancellation
	// by other means than a context.
	ErrInterrupted = errors.New("track: interrupted")
)

// IsInterrupted reports whether err is a cancellation of the decode loop
// rather than a failure.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrInterrupted)
}

// Severity classifies track exceptions.
type Severity int

const (
	// SeverityCommon is an expected failure with a known cause (missing
	// file, unsupported format).
	SeverityCommon Severity = iota
	// SeveritySuspicious is an unexpected failure of a decoder.
	SeveritySuspicious
	// SeverityFault is a bug (a decoder panic).
	SeverityFault
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityCommon:
		return "common"
	case SeveritySuspicious:
		return "suspicious"
	case SeverityFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Exception is a failure of a track, tagged with its severity.
type Exception struct {
	Message  string
	Severity Severity
	Err      error
}

// NewException creates an exception.
func NewException(message string, severity Severity, err error) *Exception {
	return &Exception{Message: message, Severity: severity, Err: err}
}

func (e *Exception) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Exception) Unwrap() error { return e.Err }

// toException returns err as an Exception, wrapping it as suspicious when
// the decoder did not already classify it.
func toException(op errmsg.Op, err error) *Exception {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	return NewException(errmsg.Format(op, err), SeveritySuspicious, err)
}
