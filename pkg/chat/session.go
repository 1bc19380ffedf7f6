package chat

import (
	"fmt"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Session holds the identity of the local user for the lifetime of one
// connection. The username is set once at login and cleared on disconnect.
type Session struct {
	Username  string
	Connected bool
}

func NewSession(username string) *Session {
	return &Session{Username: username}
}

// Clear resets the session to its logged-out state.
func (s *Session) Clear() {
	s.Username = ""
	s.Connected = false
}

// ValidateUsername applies the login form rules: trimmed non-empty, at most
// MaxUsernameLength characters, letters, digits and underscore only.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &ValidationError{Reason: "please enter a username"}
	}
	if len(username) > MaxUsernameLength {
		return &ValidationError{Reason: fmt.Sprintf("username must be less than %d characters", MaxUsernameLength+1)}
	}
	if !usernamePattern.MatchString(username) {
		return &ValidationError{Reason: "username can only contain letters, numbers, and underscore"}
	}
	return nil
}
