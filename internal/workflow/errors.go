package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInFlight is returned when a row already has an action running.
	ErrInFlight = errors.New("an action is already in flight for this request")
	// ErrNoStore is returned by an approver queue without a store id.
	ErrNoStore = errors.New("store id is required")
	// ErrInvalidCount is returned for a negative or non-numeric approved count.
	ErrInvalidCount = errors.New("approved count must be a non-negative integer")
	// ErrCountRequired is returned when a counted approval carries no count.
	ErrCountRequired = errors.New("approved count is required")
	// ErrInvalidID is returned for a request id the backend could never know.
	ErrInvalidID = errors.New("invalid request id")
	// ErrNoSession is returned when the call needs a token nobody has stored.
	ErrNoSession = errors.New("not logged in")
)

var localErrors = []error{ErrInFlight, ErrInvalidCount, ErrCountRequired, ErrNoStore, ErrInvalidID, ErrNoSession}

// Class groups errors by how the workflow reacts to them.
type Class int

const (
	ClassNone Class = iota
	// ClassTransient: no response, 5xx or 429. Polling continues.
	ClassTransient
	// ClassClient: 4xx other than 404/409/410. Shown, never retried.
	ClassClient
	// ClassConflict: 409 or 410. Someone else resolved it or it expired.
	ClassConflict
	// ClassNotFound: 404. Fatal for a request that existed.
	ClassNotFound
	// ClassLocal: rejected before reaching the network. Never retried.
	ClassLocal
	// ClassCanceled: the caller went away.
	ClassCanceled
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassClient:
		return "client"
	case ClassConflict:
		return "conflict"
	case ClassNotFound:
		return "not_found"
	case ClassLocal:
		return "local"
	case ClassCanceled:
		return "canceled"
	}
	return "unknown"
}

type httpStatuser interface {
	HTTPStatus() int
}

type userMessager interface {
	UserMessage() string
}

// Classify maps an error onto the workflow's error taxonomy.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	for _, sentinel := range localErrors {
		if errors.Is(err, sentinel) {
			return ClassLocal
		}
	}
	var se httpStatuser
	if errors.As(err, &se) {
		status := se.HTTPStatus()
		switch {
		case status == http.StatusNotFound:
			return ClassNotFound
		case status == http.StatusConflict || status == http.StatusGone:
			return ClassConflict
		case status == http.StatusTooManyRequests || status >= 500:
			return ClassTransient
		case status >= 400:
			return ClassClient
		}
	}
	return ClassTransient
}

// ToastLevel is the severity of a notice.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

func (l ToastLevel) String() string {
	switch l {
	case ToastSuccess:
		return "success"
	case ToastWarning:
		return "warning"
	case ToastError:
		return "error"
	}
	return "info"
}

// Toast is a one-line notice for the person at the terminal.
type Toast struct {
	Level     ToastLevel
	Message   string
	RequestID string
}

// ToastFor builds the notice for the outcome of verb ("approve", "reject")
// applied to request id.
func ToastFor(verb, id string, err error) Toast {
	switch Classify(err) {
	case ClassNone:
		return Toast{Level: ToastSuccess, Message: fmt.Sprintf("request %s %s", id, pastTense(verb)), RequestID: id}
	case ClassConflict:
		return Toast{Level: ToastWarning, Message: fmt.Sprintf("request %s: %s", id, messageOf(err, "already resolved or expired")), RequestID: id}
	case ClassLocal:
		return Toast{Level: ToastWarning, Message: fmt.Sprintf("request %s: %s", id, localMessage(err)), RequestID: id}
	case ClassClient, ClassNotFound:
		return Toast{Level: ToastError, Message: fmt.Sprintf("request %s: %s", id, messageOf(err, "request failed")), RequestID: id}
	}
	return Toast{Level: ToastError, Message: fmt.Sprintf("request %s: could not %s, try again", id, verb), RequestID: id}
}

func pastTense(verb string) string {
	if strings.HasSuffix(verb, "e") {
		return verb + "d"
	}
	return verb + "ed"
}

func messageOf(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

func localMessage(err error) string {
	for _, sentinel := range localErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
