package server

import (
	"net/http"
)

// Response is the envelope used for health and error bodies
type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

// OK returns a success envelope
func OK() Response {
	return Response{Status: http.StatusOK}
}

// Error returns an error envelope, defaulting to 500
func Error(msg string, status int) Response {
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return Response{
		Status: status,
		Error:  msg,
	}
}
