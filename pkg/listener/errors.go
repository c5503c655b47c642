package listener

import (
	"errors"
	"fmt"
)

var (
	// ErrSubscriptionFailed is matched by every error returned when the host
	// refuses the registration.
	ErrSubscriptionFailed = errors.New("power notification subscription failed")

	// ErrAlreadyStarted is returned by Start on a started listener.
	ErrAlreadyStarted = errors.New("listener already started")
)

// SubscriptionError is returned by Start when the platform rejects the
// registration. Without a subscription no metrics will ever be produced, so
// the owner should treat it as fatal.
type SubscriptionError struct {
	Action string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("failed to register for %s notifications: %v", e.Action, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func (e *SubscriptionError) Is(target error) bool { return target == ErrSubscriptionFailed }
