// Package wireerr provides error handling for the devtools daemon.
//
// It re-exports github.com/cockroachdb/errors for stack traces, wrapping,
// and hints, and defines the semantic error kinds from the daemon's error
// handling design: sentinel values matched with errors.Is, not a type
// hierarchy.
package wireerr

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping.
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithMessage = crdb.WithMessage
)

// User-facing messages and details.
var (
	WithHint        = crdb.WithHint
	WithHintf       = crdb.WithHintf
	WithDetail      = crdb.WithDetail
	GetAllDetails   = crdb.GetAllDetails
	GetAllHints     = crdb.GetAllHints
)

// Error inspection.
var (
	Is     = crdb.Is
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Semantic error kinds (§7). These are sentinels: callers wrap them with
// context via Wrapf and match them back with Is/As, never type-switch.
var (
	// ErrNotFound: unknown component id/label, unknown commit index.
	ErrNotFound = crdb.New("not found")
	// ErrNotReady: profile-stop with no active session, profile-report for
	// a component that never rendered in the current session.
	ErrNotReady = crdb.New("not ready")
	// ErrTimeout: a pending inspection or wait condition expired.
	ErrTimeout = crdb.New("timeout")
	// ErrMalformedBatch: the string table declared a size that overruns
	// the buffer. The batch carrying it is dropped, the connection stays up.
	ErrMalformedBatch = crdb.New("malformed batch")
	// ErrBindFailure: the WebSocket port or IPC socket could not be bound
	// at startup. Fatal.
	ErrBindFailure = crdb.New("bind failure")
	// ErrAlreadyRunning: a live daemon.json names a pid that is still alive.
	ErrAlreadyRunning = crdb.New("daemon already running")
)
