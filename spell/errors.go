package spell

import (
	"errors"
	"fmt"
)

// ErrorKind separates failures a run can survive from those that end it.
type ErrorKind int

const (
	// KindOther is any failure that aborts a run.
	KindOther ErrorKind = iota
	// KindNetwork is a failed request to the correction service. The
	// checker skips the entry and keeps going.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	default:
		return "other"
	}
}

// ErrMalformedResponse is returned when a correction table lacks a field
// every table must have.
var ErrMalformedResponse = errors.New("malformed correction response")

// Error is a classified pipeline failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindOther.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func networkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}
