package tracking

import (
	"errors"
	"fmt"
)

var (
	ErrNoUserSignedIn       = errors.New("no user signed in")
	ErrSessionAlreadyActive = errors.New("session already active")
	ErrNoActiveEntry        = errors.New("no active entry")
	ErrNoActivePause        = errors.New("no active pause")
	ErrPauseAlreadyOpen     = errors.New("pause already open")
	ErrInvalidState         = errors.New("invalid tracking state")
	ErrOperationInProgress  = errors.New("another operation is in progress")
	ErrStoreClosed          = errors.New("tracking store closed")
	ErrPersistenceFailure   = errors.New("persistence failure")
)

// PersistenceError reports a repository read or write the store could not complete.
// Err is the repository error, unmodified.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistenceFailure) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}

func persistenceError(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
