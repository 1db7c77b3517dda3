package remote

import (
	"errors"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// Transport: the request never produced a response (DNS, refused, reset).
	Transport Kind = iota + 1
	// Protocol: the server answered with a non-2xx status.
	Protocol
	// Contract: a 2xx answer whose payload is not what the operation promises.
	Contract
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Contract:
		return "contract"
	default:
		return "unknown"
	}
}

// Error is the single failure shape returned by Client.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidResponse marks a 2xx reply that is not a well-formed Post.
var ErrInvalidResponse = errors.New("invalid server response")

func contractError(msg string, cause error) *Error {
	return &Error{Kind: Contract, Message: msg, Err: cause}
}

// KindOf returns the Kind of err, or 0 when err did not come from a Client.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsNotFound reports a protocol failure with status 404.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == Protocol && re.Status == http.StatusNotFound
}
