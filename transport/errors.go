package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindNetwork: the request never got a usable response (connection
	// refused, timeout, unreadable body).
	KindNetwork Kind = "network"

	// KindUnauthorized: the server answered 401. Retrying cannot help
	// without new credentials.
	KindUnauthorized Kind = "unauthorized"

	// KindApplication: the server answered with any other non-2xx status.
	KindApplication Kind = "application"
)

// NetworkErrorMessage is the message of every KindNetwork error.
const NetworkErrorMessage = "Network error"

// fallbackMessage is used when an error response carries no message.
const fallbackMessage = "Something went wrong, please try again"

/*
Error is the one failure shape callers see. Message is safe to show to
the user verbatim (it is the server's own message for application errors).
The HTTP status is kept for classification only.
*/
type Error struct {
	Kind    Kind
	Message string

	status int
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable implements retry.Retryable. Only network failures are retried.
func (e *Error) Retryable() bool { return e.Kind == KindNetwork }

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindUnauthorized
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindNetwork
}

func networkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: NetworkErrorMessage, cause: cause}
}
