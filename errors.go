package mappy

import "errors"

// Sentinel errors returned by the core, either bare or wrapped with
// fmt.Errorf's %w so errors.Is matches them. Collaborator packages
// (pkg/persist, pkg/ttlx, pkg/rpcserver) define their own
// github.com/zeebo/errs classes for errors from file or network I/O; they do
// not re-wrap these sentinels.
var (
	// ErrInvalidConfig is returned at construction when a Config field is
	// out of its valid range.
	ErrInvalidConfig = errors.New("mappy: invalid configuration")

	// ErrInvalidCapacity is returned when a requested capacity (initial or
	// resize target) cannot be honored.
	ErrInvalidCapacity = errors.New("mappy: invalid capacity")

	// ErrCapacityExceeded is returned when an insert would push the load
	// factor past its bound and auto-resize is disabled, or is unable to
	// proceed (the filter has no free slots left).
	ErrCapacityExceeded = errors.New("mappy: capacity exceeded")

	// ErrCollisionLimitExceeded is returned when a resize cannot place
	// every existing entry within the target capacity.
	ErrCollisionLimitExceeded = errors.New("mappy: collision limit exceeded during resize")

	// ErrMergeFailed is returned when a merge operator's Merge call
	// returns an error; the triggering insert is not applied.
	ErrMergeFailed = errors.New("mappy: merge operator failed")

	// ErrKeyNotFound names the "key not found" condition. No function in
	// this module returns it: Query and Contains report absence with a
	// false result instead of an error.
	ErrKeyNotFound = errors.New("mappy: key not found")
)

// internalError marks an invariant violation detected by a runtime
// assertion. These are fatal: the taxonomy (spec §7) treats them as bugs,
// not caller mistakes, so the core panics rather than returning them.
type internalError struct {
	msg string
}

func (e internalError) Error() string {
	return "mappy: internal invariant violation: " + e.msg
}

func panicInvariant(msg string) {
	panic(internalError{msg})
}
