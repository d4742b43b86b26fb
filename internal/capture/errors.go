package capture

import "errors"

var (
	// ErrInvalidConfig is returned when a source configuration fails
	// validation. Nothing is mutated when creation is rejected with it.
	ErrInvalidConfig = errors.New("capture: invalid source config")

	// ErrDuplicateTask is returned when creating a task whose id already
	// exists.
	ErrDuplicateTask = errors.New("capture: task already exists")

	// ErrTaskNotFound is returned when the referenced task id is unknown.
	ErrTaskNotFound = errors.New("capture: task not found")

	// ErrInvalidTransition is returned when a lifecycle call is not
	// allowed from the task's current status.
	ErrInvalidTransition = errors.New("capture: invalid status transition")

	// ErrManagerClosed is returned when operating on a closed manager.
	ErrManagerClosed = errors.New("capture: manager closed")
)
