package events

import (
	"encoding/json"
	"time"
)

// Event name constants
const (
	BatteryPercent = "battery.percent"
	BatteryWattage = "battery.wattage"
)

// Event is a generic event published by the daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// MetricEvent is the typed payload for battery.percent and battery.wattage.
type MetricEvent struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Ts     int64  `json:"ts"`
}

// NewMetricEvent returns a MetricEvent stamped with the current time.
func NewMetricEvent(metric, value string) MetricEvent {
	return MetricEvent{Metric: metric, Value: value, Ts: time.Now().Unix()}
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.MetricEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Metric, payload.Value)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// Frame is one WebSocket message sent by the daemon.
type Frame struct {
	Event string      `json:"event"`
	Data  MetricEvent `json:"data"`
}
