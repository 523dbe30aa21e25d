// Package rvberrors defines the typed error kinds of the engine's error
// handling design (spec §7): construction-time failures the caller
// must see, and sentinel values used to recognise degraded-but-normal
// outcomes (no-exception numeric policy) versus caller-surfaced ones.
package rvberrors

import "errors"

// Kind enumerates the error propagation policy classes of spec §7.
type Kind int

const (
	NonMonotonicAxis Kind = iota
	OutOfRangeQuery
	MissingOceanData
	CollisionRefinementExceeded
	NonFiniteIntegration
	TaskAborted
	ManagerKeyMissing
	ManagerKeyDuplicate
)

func (k Kind) String() string {
	switch k {
	case NonMonotonicAxis:
		return "non_monotonic_axis"
	case OutOfRangeQuery:
		return "out_of_range_query"
	case MissingOceanData:
		return "missing_ocean_data"
	case CollisionRefinementExceeded:
		return "collision_refinement_exceeded"
	case NonFiniteIntegration:
		return "non_finite_integration"
	case TaskAborted:
		return "task_aborted"
	case ManagerKeyMissing:
		return "manager_key_missing"
	case ManagerKeyDuplicate:
		return "manager_key_duplicate"
	default:
		return "unknown"
	}
}

// Error is a typed engine error carrying its Kind alongside a message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// New builds an *Error of the given kind.
func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// Is supports errors.Is matching against a bare Kind sentinel created
// via New(k, "").
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons at call sites that only care
// about the kind, e.g. errors.Is(err, rvberrors.ErrManagerKeyMissing).
var (
	ErrNonMonotonicAxis  = New(NonMonotonicAxis, "")
	ErrMissingOceanData  = New(MissingOceanData, "")
	ErrManagerKeyMissing = New(ManagerKeyMissing, "")
	ErrManagerKeyDup     = New(ManagerKeyDuplicate, "")
)
