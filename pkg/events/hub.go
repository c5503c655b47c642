package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

// EventHub fans events out to any number of subscribers. A subscriber that
// falls behind loses its oldest queued events, never the newest.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}

	dropped atomic.Uint64
}

func NewEventHub() *EventHub { return &EventHub{subs: make(map[chan Event]struct{})} }

func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. It is safe to call more than once.
func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many queued events were discarded for slow subscribers.
func (h *EventHub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", name).Error("failed to marshal event payload")
		return
	}
	h.publish(Event{Name: name, Data: b})
}

// PublishMetric publishes a MetricEvent for metric under the event name.
func (h *EventHub) PublishMetric(name, metric, value string) {
	h.Publish(name, NewMetricEvent(metric, value))
}

func (h *EventHub) publish(msg Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		for sent := false; !sent; {
			select {
			case ch <- msg:
				sent = true
			default:
				// Full: discard the oldest and try again.
				select {
				case <-ch:
					h.dropped.Add(1)
				default:
				}
			}
		}
	}
}
