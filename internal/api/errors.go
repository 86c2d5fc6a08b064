package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samcharles93/lifkit/pkg/lif"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

type errContainerNotFound struct {
	name string
}

func (e errContainerNotFound) Error() string {
	return fmt.Sprintf("container %q not found", e.name)
}

func (e errContainerNotFound) Unwrap() error { return ErrNotFound }

// classify maps an error to an HTTP status and an error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, lif.ErrNotFound):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, lif.ErrInvalidValue):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, lif.ErrNotSupported):
		return http.StatusNotImplemented, "not_supported_error"
	case errors.Is(err, lif.ErrFormat), errors.Is(err, lif.ErrStructure):
		return http.StatusUnprocessableEntity, "container_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
