package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrNotDeclined            = errors.New("opportunity is not declined")
	ErrDeadlinePassed         = errors.New("opportunity deadline has passed")
	ErrDuplicateRequest       = errors.New("a pending restore request already exists")
	ErrRequestResolved        = errors.New("restore request is already resolved")
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDeliveryFailure        = errors.New("notification delivery failed")
)

// TransitionError describes a rejected response-state change.
type TransitionError struct {
	From ResponseState
	To   ResponseState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// DeliveryError wraps a transport failure for one published event.
type DeliveryError struct {
	Transport string
	Event     EventType
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s via %s: %v", e.Event, e.Transport, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.Err}
}
