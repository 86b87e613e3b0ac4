package ops

import (
	"errors"

	"github.com/ovn-kubernetes/libovsdb/client"
)

var (
	// ErrNotFound is returned when a referenced row is absent from the
	// database. It is the libovsdb client error so both can be matched
	// with errors.Is.
	ErrNotFound = client.ErrNotFound
	// ErrAlreadyExists is returned when an add command without may-exist
	// finds its target already present.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrConflict is returned when a column registered with Verify changed
	// before the transaction committed. The caller has to recompute and
	// retry with fresh data.
	ErrConflict = errors.New("transaction aborted: verified column changed concurrently")
	// ErrDatabaseUnavailable wraps connection level failures.
	ErrDatabaseUnavailable = errors.New("database unavailable")
	// ErrInvalidInput is returned for requests rejected before any
	// transaction is built.
	ErrInvalidInput = errors.New("invalid input")
)
