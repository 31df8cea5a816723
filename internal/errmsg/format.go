// Package errmsg provides consistent error formatting for track and player failures.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Track execution
	OpTrackLoad Op = "load track"
	OpTrackRead Op = "read track"
	OpTrackSeek Op = "seek track"

	// Source resolution
	OpSourceResolve Op = "resolve source"
	OpSourceOpen    Op = "open source"
	OpSourceDecode  Op = "decode source"

	// Player
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Output
	OpOutputInit Op = "initialize audio output"

	// Initialization
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
