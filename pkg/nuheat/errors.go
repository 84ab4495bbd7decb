package nuheat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is wrapped in an AuthError when the API answers 401.
	ErrUnauthorized = errors.New("nuheat: unauthorized")

	// ErrTimeout is returned when a request exceeds the client timeout.
	ErrTimeout = errors.New("nuheat: request timed out")
)

// AuthError is returned when no valid access token could be obtained or the
// API rejected the token. The caller must re-authorize; retrying is pointless.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("nuheat: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ServerError is returned for any status other than 200, 204 and 401.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("nuheat: api error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// TransportError wraps network and decoding failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nuheat: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err requires re-authorization.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
