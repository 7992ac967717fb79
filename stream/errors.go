package stream

import "fmt"

// ConfigError reports a slide description that cannot be turned into
// requests, such as an unknown colour name.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// RangeError reports a slide index outside the presentation.
type RangeError struct {
	Msg string
}

func (e *RangeError) Error() string {
	return e.Msg
}

// BackendError wraps a failed call to the presentation backend.
type BackendError struct {
	Op             string
	PresentationID string
	Err            error
}

func (e *BackendError) Error() string {
	if e.PresentationID == "" {
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s (%s): %v", e.Op, e.PresentationID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
