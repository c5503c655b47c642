package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	// The daemon only listens on a unix socket, so there is no browser
	// origin to check.
	CheckOrigin: func(*http.Request) bool { return true },
}

func mustEvent(name, metric, value string) events.Event {
	b, _ := json.Marshal(events.NewMetricEvent(metric, value))
	return events.Event{Name: name, Data: b}
}

func (s *server) serveWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	snap := s.metrics.Snapshot()
	for _, ev := range []events.Event{
		mustEvent(events.BatteryPercent, "percent", snap.Percent),
		mustEvent(events.BatteryWattage, "wattage", snap.Wattage),
	} {
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"))
			return
		case <-closed:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				logrus.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev events.Event) error {
	payload, err := events.DecodeAs[events.MetricEvent](ev)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(events.Frame{Event: ev.Name, Data: payload})
}

// readPump discards client messages and reports when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
