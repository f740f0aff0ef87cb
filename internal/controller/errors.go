package controller

import "errors"

var (
	// ErrInvalidTransition indicates a lifecycle transition that the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotActive indicates an operation that needs fold regions on a
	// controller that has none (disabled, closed or document too large).
	ErrNotActive = errors.New("folding not active")

	// ErrUnknownCommand indicates an unregistered command name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidArgument indicates a command argument out of range.
	ErrInvalidArgument = errors.New("invalid argument")
)
