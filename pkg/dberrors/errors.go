// Package dberrors holds the two error strata of the mutable table and its
// host: recoverable construction errors, returned normally, and contract
// violations, which are programming errors and fail fast.
package dberrors

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is returned by memtable.New when the caller-supplied
	// Allocator refuses to reserve backing storage for value_count_max
	// entries.
	ErrAllocation = errors.New("lsmtable: allocation failed")

	// ErrInvalidArgument is returned by host-level constructors for bad
	// configuration that isn't a bug in the mutable table itself.
	ErrInvalidArgument = errors.New("lsmtable: invalid argument")
)

// Assert panics if cond is false. Every capacity and state-machine
// precondition in the mutable table is a programming error, not a runtime
// fault: detected by assertion, in both debug and release builds, and
// left to terminate the process rather than propagated as an error a
// caller might paper over.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
