package models

import "fmt"

// Optional is a value that may be missing
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns a missing value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Status tags the result of a client operation
type Status int

const (
	// StatusMissing means the service answered but had no data
	StatusMissing Status = iota
	// StatusSuccess means a value was obtained
	StatusSuccess
	// StatusFailed means the lookup failed (transport, parse or shape error)
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result of a client operation:
// Success(value), Missing or Failed(err).
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Success returns a successful outcome
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Status: StatusSuccess, Value: v}
}

// Missing returns an outcome without data
func Missing[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusMissing}
}

// Failed returns an outcome for a failed lookup
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the outcome carries a value
func (o Outcome[T]) OK() bool {
	return o.Status == StatusSuccess
}
