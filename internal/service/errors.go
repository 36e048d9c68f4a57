package service

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle failure.  Every kind is recoverable by the
// caller; infrastructure failures are plain errors and carry no Kind.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidState
	KindValidation
	KindRateLimited
	KindAlreadyExists
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_error"
	case KindRateLimited:
		return "rate_limited"
	case KindAlreadyExists:
		return "already_exists"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a typed lifecycle failure.  Message is safe to show to the end
// user.  RetryAfter is set for KindRateLimited; Rejected lists the menu
// item ids refused by order validation.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter int
	Rejected   []uint64
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Message }

// KindOf returns the Kind of err, or zero for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func invalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func validation(msg string, rejected ...uint64) *Error {
	return &Error{Kind: KindValidation, Message: msg, Rejected: rejected}
}

func forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "not allowed for your role"}
}

func rateLimited(secs int) *Error {
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Please wait %d %s before trying again.", secs, unit),
		RetryAfter: secs,
	}
}

func alreadyExists(msg string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: msg}
}
