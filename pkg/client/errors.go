package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when nothing listens on the daemon socket.
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the socket is not accessible to the
	// current user. Reinstalling with --allow-non-root-access opens it up.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the daemon answers 404, usually because
	// it is older than the client.
	ErrNotFound = errors.New("404 not found")
)
