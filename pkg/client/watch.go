package client

import (
	"context"
	"net"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battwatch/pkg/events"
)

// Watch streams metric changes from the daemon and calls fn for each of them,
// starting with the current values. It returns nil once ctx is done or the
// daemon closes the stream normally.
func (c *Client) Watch(ctx context.Context, fn func(events.Frame)) error {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return c.dial(ctx, "", "")
		},
	}

	conn, _, err := dialer.DialContext(ctx, "ws://unix/ws", nil)
	if err != nil {
		if pkgerrors.Is(err, ErrDaemonNotRunning) || pkgerrors.Is(err, ErrPermissionDenied) {
			return err
		}
		return pkgerrors.Wrap(err, "failed to open event stream")
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var f events.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return pkgerrors.Wrap(err, "event stream interrupted")
		}
		fn(f)
	}
}
