// SPDX-License-Identifier: GPL-3.0

// Package errs provides the typed, fatal programmer-error kinds raised by
// the simulator. Modeling events such as a dropped segment or a corrupted
// checksum are not errors here; they are local, silent outcomes reported
// through logging or return values, not through this package.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of a fatal simulator error.
type Kind int

const (
	// InvalidTimer indicates a duplicate timer registration or a cancel of
	// an unknown timer handle. Both are programmer errors in the caller.
	InvalidTimer Kind = iota
	// UnknownVariant indicates an unrecognized TCP sender variant name.
	UnknownVariant
	// NoRoute indicates a router with no forwarding entry for a destination.
	NoRoute
)

func (k Kind) String() string {
	switch k {
	case InvalidTimer:
		return "InvalidTimer"
	case UnknownVariant:
		return "UnknownVariant"
	case NoRoute:
		return "NoRoute"
	default:
		return "Unknown"
	}
}

// KindError is a fatal error tagged with a Kind, wrapped with a stack trace.
type KindError struct {
	Kind Kind
	msg  string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// New returns a KindError of the given kind, wrapped with a stack trace.
func New(kind Kind, format string, a ...any) error {
	return errors.WithStack(&KindError{Kind: kind, msg: fmt.Sprintf(format, a...)})
}

// Is reports whether err is a KindError of the given kind.
func Is(err error, kind Kind) bool {
	var ke *KindError
	for err != nil {
		if k, ok := err.(*KindError); ok {
			ke = k
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ke != nil && ke.Kind == kind
}
