package gateway

import "errors"

var (
	// ErrNotAuthenticated means no token was stored; nothing was sent.
	ErrNotAuthenticated = errors.New("gateway: not authenticated")
	// ErrSessionExpired means the API answered 401 or 403; the token is gone.
	ErrSessionExpired = errors.New("gateway: session expired")
	// ErrUnreachable means the API could not be reached at all.
	ErrUnreachable = errors.New("gateway: cannot reach server")
)

// TransportError wraps a connection-level failure. It matches ErrUnreachable
// with errors.Is; the underlying cause is kept for logs.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return ErrUnreachable.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrUnreachable }
