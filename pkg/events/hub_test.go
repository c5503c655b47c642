package events

import "testing"

func TestHubPublish(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(BatteryPercent, NewMetricEvent("percent", "73%"))

	ev := <-ch
	if ev.Name != BatteryPercent {
		t.Errorf("Name = %q, want %q", ev.Name, BatteryPercent)
	}
	payload, err := DecodeAs[MetricEvent](ev)
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if payload.Value != "73%" || payload.Metric != "percent" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewEventHub()
	a, b := h.Subscribe(), h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.PublishMetric(BatteryWattage, "wattage", "7.50 W")

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		if p, _ := DecodeAs[MetricEvent](ev); p.Value != "7.50 W" {
			t.Errorf("payload = %+v", p)
		}
	}
}

func TestHubSlowSubscriberKeepsNewest(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()

	total := cap(ch) + 10
	for i := 0; i < total; i++ {
		h.PublishMetric(BatteryPercent, "percent", string(rune('a'+i)))
	}
	if len(ch) != cap(ch) {
		t.Errorf("len = %d, want %d", len(ch), cap(ch))
	}
	if h.Dropped() != 10 {
		t.Errorf("Dropped() = %d, want 10", h.Dropped())
	}

	var last MetricEvent
	for len(ch) > 0 {
		last, _ = DecodeAs[MetricEvent](<-ch)
	}
	if want := string(rune('a' + total - 1)); last.Value != want {
		t.Errorf("last queued value = %q, want %q", last.Value, want)
	}

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", h.Subscribers())
	}
}

func TestNilHubPublish(t *testing.T) {
	var h *EventHub
	h.Publish(BatteryPercent, nil)
}

func TestDecodeAsEmpty(t *testing.T) {
	v, err := DecodeAs[MetricEvent](Event{Name: BatteryPercent})
	if err != nil || v != (MetricEvent{}) {
		t.Errorf("DecodeAs() = %+v, %v; want zero value", v, err)
	}
}
