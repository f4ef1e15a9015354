package connpool

import (
	"fmt"

	"github.com/fathiraz/connpool/errclass"
)

// ConnectionTimeoutError is returned when a borrow does not find or create
// a Connection within connectionTimeout.
type ConnectionTimeoutError struct {
	Timeout string
}

func (err *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("connpool: borrow timed out after %s", err.Timeout)
}

// ConnectionFailureError wraps a failure opening a raw connection, or an
// I/O error captured on an owned Connection.
type ConnectionFailureError struct {
	Cause error
}

func (err *ConnectionFailureError) Error() string {
	return fmt.Sprintf("connpool: connection failure: %v", err.Cause)
}

func (err *ConnectionFailureError) Unwrap() error { return err.Cause }

// ConnectionAlreadyReleasedError is returned when a Connection is released
// back to the pool (via Close) by a caller that does not own it.
type ConnectionAlreadyReleasedError struct {
	ConnectionID string
}

func (err *ConnectionAlreadyReleasedError) Error() string {
	return fmt.Sprintf("connpool: connection %s already released", err.ConnectionID)
}

// UncommittedTransactionForcedRollbackError is raised to the caller when
// Close arrives with a pending commit; the rollback has already been
// issued and the Connection has already been released by the time the
// caller observes this error.
type UncommittedTransactionForcedRollbackError struct {
	ConnectionID string
}

func (err *UncommittedTransactionForcedRollbackError) Error() string {
	return fmt.Sprintf("connpool: connection %s closed with a pending commit, rollback forced", err.ConnectionID)
}

// DataAccessError is a post-classification data-access failure. Kind is
// one of errclass.Communication, errclass.System, or errclass.Application.
type DataAccessError struct {
	Kind  errclass.Category
	Cause error
}

func (err *DataAccessError) Error() string {
	return fmt.Sprintf("connpool: data access error (%s): %v", err.Kind, err.Cause)
}

func (err *DataAccessError) Unwrap() error { return err.Cause }

// NoDataError signals a classified empty-result condition. The connection
// is unaffected.
type NoDataError struct {
	Cause error
}

func (err *NoDataError) Error() string {
	return fmt.Sprintf("connpool: no data: %v", err.Cause)
}

func (err *NoDataError) Unwrap() error { return err.Cause }

// Poisons reports whether err, if it is a *DataAccessError, means the
// owning Connection must be retired. Any other error (including nil)
// reports false: non-classified errors never poison a Connection on their
// own.
func Poisons(err error) bool {
	dae, ok := err.(*DataAccessError)
	return ok && dae.Kind.Poisons()
}
