package session

import "errors"

var (
	// ErrInFlight means the same operation on the same quest is still waiting
	// for the backend. The control that triggers it is disabled.
	ErrInFlight = errors.New("operation already in flight")

	// ErrCancelled means the user declined to confirm giving up.
	ErrCancelled = errors.New("cancelled")

	// ErrNotPersisted means the operation needs a quest id the backend has not
	// assigned yet.
	ErrNotPersisted = errors.New("quest has not been saved")

	// ErrNoSelection means no quest is open in the detail view.
	ErrNoSelection = errors.New("no quest selected")

	// ErrNotFound means no quest in the session has the given id.
	ErrNotFound = errors.New("quest not found")

	// ErrEmptyTask is returned by Generate for a blank task.
	ErrEmptyTask = errors.New("please enter a task first")

	// ErrNoGenerator means the manager was built without a generator.
	ErrNoGenerator = errors.New("quest generation is not configured")
)
