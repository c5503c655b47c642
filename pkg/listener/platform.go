package listener

import "github.com/charlie0129/battwatch/pkg/powerevent"

// Handler receives one event per notification. It is called on whatever
// goroutine the platform delivers on.
type Handler func(powerevent.Event)

// Platform is the host facility that pushes power state notifications.
type Platform interface {
	// Register subscribes h to notifications of the given action.
	Register(action string, h Handler) (Registration, error)
}

// Registration is an active subscription returned by Platform.Register.
type Registration interface {
	Unregister() error
}

// Snapshotter is implemented by platforms that can report the current state
// on demand. The listener uses it once at Start, so observers do not wait for
// the next hardware change to see a value.
type Snapshotter interface {
	Snapshot() (powerevent.Event, error)
}
