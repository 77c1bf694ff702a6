package recon

import (
	"errors"
	"fmt"
)

// FaultKind classifies engine failures so callers can branch explicitly
// instead of inspecting error strings.
type FaultKind int

const (
	// FaultTransient marks infrastructure failures (storage, serialization)
	// that may succeed on a later attempt.
	FaultTransient FaultKind = iota
	// FaultInvariant marks caller-contract violations, e.g. an evaluation
	// triggered for a trade identifier with no stored data on either side.
	FaultInvariant
)

func (k FaultKind) String() string {
	if k == FaultInvariant {
		return "invariant-violation"
	}
	return "transient"
}

// Fault is a tagged engine error.
type Fault struct {
	Kind FaultKind
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s fault: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// ErrNoTradeData is returned when an evaluation finds no trade record for
// either source system.
var ErrNoTradeData = errors.New("no trade data for either source system")

func transient(op string, err error) *Fault {
	return &Fault{Kind: FaultTransient, Op: op, Err: err}
}

func invariant(op string, err error) *Fault {
	return &Fault{Kind: FaultInvariant, Op: op, Err: err}
}

// IsInvariantViolation reports whether err is a tagged invariant-violation fault.
func IsInvariantViolation(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == FaultInvariant
}

// IsTransient reports whether err is a tagged transient fault.
func IsTransient(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == FaultTransient
}
