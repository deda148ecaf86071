package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call
type ErrorKind int

const (
	// KindBusiness is a request the server understood and refused
	KindBusiness ErrorKind = iota
	// KindSessionExpired is a 401; the local session has been cleared
	KindSessionExpired
	// KindForbidden is a 403
	KindForbidden
	// KindTransient is a network failure or 5xx and is safe to retry
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindBusiness:
		return "business"
	case KindSessionExpired:
		return "session_expired"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	msgSessionExpired = "session expired, please log in again"
	msgForbidden      = "permission denied"
	msgServer         = "server error, please try again later"
	msgNetwork        = "network error, please try again later"
)

// Error is the single shape every failed pipeline call is reported as
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 when no response was received
	Code    int // Envelope code, 0 when absent
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind reports whether err is an *Error of kind k
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

var (
	// ErrNoCredential is returned when an operation needs a credential and none is held
	ErrNoCredential = errors.New("not logged in")

	// ErrProfileFetchFailed marks a login whose credential was kept but
	// whose profile could not be loaded
	ErrProfileFetchFailed = errors.New("login succeeded but profile fetch failed")
)
