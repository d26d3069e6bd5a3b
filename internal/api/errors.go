package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = DefaultMessage(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// HTTPStatus reports the response status code.
func (e *Error) HTTPStatus() int { return e.StatusCode }

// UserMessage is the one-line text shown to a person: the server message when
// present, otherwise a status-specific default.
func (e *Error) UserMessage() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return DefaultMessage(e.StatusCode)
}

// DefaultMessage returns the fallback text for a status without a server message.
func DefaultMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request was invalid"
	case http.StatusUnauthorized:
		return "session is missing or expired, sign in again"
	case http.StatusForbidden:
		return "this action is not allowed for the current session"
	case http.StatusNotFound:
		return "the request no longer exists"
	case http.StatusConflict:
		return "this request was already processed"
	case http.StatusGone:
		return "this request has expired"
	case http.StatusTooManyRequests:
		return "too many requests, try again shortly"
	}
	if status >= 500 {
		return "the server failed to process the request"
	}
	return fmt.Sprintf("unexpected response (status %d)", status)
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}
