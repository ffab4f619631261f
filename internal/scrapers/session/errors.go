package session

import (
	"errors"
	"fmt"
)

// AuthError is returned when a portal rejects the credentials, when the login
// sequence cannot be completed (ex. a missing CSRF token) or when a re-login after
// session expiry fails.
type AuthError struct {
	Portal string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: login failed: %s: %s", e.Portal, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("%s: login failed: %s", e.Portal, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError is returned when a request could not be completed because of a
// transport failure or a timeout.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Err.Error())
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrActionUnconfirmed marks a side-effecting action that returned a success-like
// status without any confirmation payload. It is only ever reported, never returned
// to the caller as a failure.
var ErrActionUnconfirmed = errors.New("action returned a success status without a confirmation payload")

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsNetworkError reports whether err is or wraps a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
