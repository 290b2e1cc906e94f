package server

import (
	"context"
	"errors"
	"net/http"

	"megamillions/repository"
)

// errorMapping maps a domain error to an HTTP status and a client safe message
type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{repository.ErrUnavailable, http.StatusServiceUnavailable, "results store unavailable"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "results store timed out"},
	{context.Canceled, http.StatusServiceUnavailable, "request cancelled"},
}

// mapError returns the response for a failed read. Unknown errors are a 500.
func mapError(err error) Response {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return Error(m.message, m.status)
		}
	}
	return Error("internal server error", http.StatusInternalServerError)
}
