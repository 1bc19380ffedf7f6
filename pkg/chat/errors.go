package chat

import "fmt"

// ConnectionError reports a failure to establish the channel. It is terminal:
// the session stays disconnected and input stays disabled until the program
// is restarted.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to chat server: %s", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError reports a failed directory request. Local state is left
// untouched so the view stays consistent with the last known good state.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %s", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ValidationError is raised locally before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
