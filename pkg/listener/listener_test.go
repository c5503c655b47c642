package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/charlie0129/battwatch/pkg/metrics"
	"github.com/charlie0129/battwatch/pkg/powerevent"
	"github.com/charlie0129/battwatch/pkg/state"
)

type fakePlatform struct {
	mu          sync.Mutex
	handler     Handler
	action      string
	registerErr error
	registers   int
	unregisters int
	snapshot    powerevent.Event
	snapshotErr error
}

type fakeRegistration struct{ p *fakePlatform }

func (r *fakeRegistration) Unregister() error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.unregisters++
	r.p.handler = nil
	return nil
}

func (p *fakePlatform) Register(action string, h Handler) (Registration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registerErr != nil {
		return nil, p.registerErr
	}
	p.registers++
	p.action = action
	p.handler = h
	return &fakeRegistration{p: p}, nil
}

func (p *fakePlatform) deliver(ev powerevent.Event) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

type snapshotPlatform struct{ *fakePlatform }

func (p snapshotPlatform) Snapshot() (powerevent.Event, error) {
	return p.snapshot, p.snapshotErr
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestListener(p Platform, opts ...Option) (*Listener, *state.Metrics) {
	m := state.NewMetrics()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(p, m, opts...), m
}

func TestStartRegistersOnce(t *testing.T) {
	p := &fakePlatform{}
	l, _ := newTestListener(p)

	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if p.action != powerevent.ActionBatteryChanged {
		t.Errorf("registered for %q, want %q", p.action, powerevent.ActionBatteryChanged)
	}
	if err := l.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if p.registers != 1 {
		t.Errorf("registers = %d, want 1", p.registers)
	}
}

func TestStartSubscriptionFailure(t *testing.T) {
	cause := errors.New("netlink: permission denied")
	p := &fakePlatform{registerErr: cause}
	l, _ := newTestListener(p)

	err := l.Start()
	if !errors.Is(err, ErrSubscriptionFailed) {
		t.Fatalf("Start() error = %v, want ErrSubscriptionFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Start() error should wrap the platform error, got %v", err)
	}
	var subErr *SubscriptionError
	if !errors.As(err, &subErr) || subErr.Action != powerevent.ActionBatteryChanged {
		t.Errorf("Start() error = %#v, want *SubscriptionError", err)
	}

	// Stop after a failed Start must be a no-op.
	l.Stop()
	if p.unregisters != 0 {
		t.Errorf("unregisters = %d, want 0", p.unregisters)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := &fakePlatform{}
	l, _ := newTestListener(p)

	// Never started.
	l.Stop()
	l.Stop()
	if p.unregisters != 0 {
		t.Fatalf("unregisters = %d, want 0", p.unregisters)
	}

	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	l.Stop()
	l.Stop()
	if p.unregisters != 1 {
		t.Errorf("unregisters = %d, want 1", p.unregisters)
	}

	// A stopped listener can be started again.
	if err := l.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	l.Stop()
	if p.registers != 2 || p.unregisters != 2 {
		t.Errorf("registers/unregisters = %d/%d, want 2/2", p.registers, p.unregisters)
	}
}

func TestEndToEndExamples(t *testing.T) {
	tests := []struct {
		name        string
		event       powerevent.Event
		wantPercent string
		wantWattage string
	}{
		{
			name:        "charging",
			event:       powerevent.New(73, 100, powerevent.StatusCharging, 1_500_000, 5_000),
			wantPercent: "73%",
			wantWattage: "7.50 W",
		},
		{
			name:        "full",
			event:       powerevent.New(100, 100, powerevent.StatusFull, 0, 5000),
			wantPercent: "100%",
			wantWattage: metrics.ChargingUnavailable,
		},
		{
			name:        "discharging",
			event:       powerevent.New(50, 100, powerevent.StatusDischarging, -200000, 4000),
			wantPercent: "50%",
			wantWattage: metrics.NotCharging,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlatform{}
			l, m := newTestListener(p)
			if err := l.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer l.Stop()

			p.deliver(tt.event)

			if got := m.Percent.Get(); got != tt.wantPercent {
				t.Errorf("percent = %q, want %q", got, tt.wantPercent)
			}
			if got := m.Wattage.Get(); got != tt.wantWattage {
				t.Errorf("wattage = %q, want %q", got, tt.wantWattage)
			}
		})
	}
}

func TestUnknownBeforeFirstEvent(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if snap := m.Snapshot(); snap.Percent != metrics.Unknown || snap.Wattage != metrics.Unknown {
		t.Errorf("snapshot = %+v, want both unknown", snap)
	}
}

func TestSameEventTwice(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	ev := powerevent.New(73, 100, powerevent.StatusCharging, 1_500_000, 5_000)
	p.deliver(ev)
	first := m.Snapshot()
	p.deliver(ev)
	second := m.Snapshot()
	if first != second {
		t.Errorf("snapshots differ: %+v != %+v", first, second)
	}
	if l.Delivered() != 2 {
		t.Errorf("Delivered() = %d, want 2", l.Delivered())
	}
}

func TestStatusChangeClearsWattage(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	p.deliver(powerevent.New(60, 100, powerevent.StatusCharging, 2_000_000, 5_000))
	if got := m.Wattage.Get(); got != "10.00 W" {
		t.Fatalf("wattage = %q, want 10.00 W", got)
	}

	// Discharging with numbers that would otherwise yield a wattage.
	p.deliver(powerevent.New(60, 100, powerevent.StatusDischarging, 2_000_000, 5_000))
	if got := m.Wattage.Get(); got != metrics.NotCharging {
		t.Errorf("wattage = %q, want %q", got, metrics.NotCharging)
	}
}

func TestWattageTransitions(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	steps := []struct {
		event powerevent.Event
		want  string
	}{
		{powerevent.New(50, 100, powerevent.StatusCharging, 1_000_000, 5_000), "5.00 W"},
		{powerevent.New(50, 100, powerevent.StatusCharging, 0, 5_000), metrics.ChargingUnavailable},
		{powerevent.New(50, 100, powerevent.StatusDischarging, -1, 5_000), metrics.NotCharging},
	}

	// Every state must be reachable directly from every other one.
	for _, from := range steps {
		for _, to := range steps {
			p.deliver(from.event)
			p.deliver(to.event)
			if got := m.Wattage.Get(); got != to.want {
				t.Errorf("after %q -> %q: wattage = %q", from.want, to.want, got)
			}
		}
	}
}

func TestMalformedLevelRetainsPercent(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	p.deliver(powerevent.New(73, 100, powerevent.StatusDischarging, -100, 4000))
	p.deliver(powerevent.New(-1, 100, powerevent.StatusCharging, 1_000_000, 4000))

	if got := m.Percent.Get(); got != "73%" {
		t.Errorf("percent = %q, want 73%%", got)
	}
	// Wattage is still derived from the malformed event.
	if got := m.Wattage.Get(); got != "4.00 W" {
		t.Errorf("wattage = %q, want 4.00 W", got)
	}
}

func TestMalformedLevelUnknownPolicy(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p, WithPercentPolicy(PercentUnknown))
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	p.deliver(powerevent.New(73, 100, powerevent.StatusDischarging, -100, 4000))
	p.deliver(powerevent.Event{powerevent.KeyScale: "100"})

	if got := m.Percent.Get(); got != metrics.Unknown {
		t.Errorf("percent = %q, want %q", got, metrics.Unknown)
	}
}

func TestSetPercentPolicyWhileRunning(t *testing.T) {
	p := &fakePlatform{}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if l.PercentPolicy() != PercentRetain {
		t.Fatalf("PercentPolicy() = %q, want %q", l.PercentPolicy(), PercentRetain)
	}

	p.deliver(powerevent.New(73, 100, powerevent.StatusDischarging, -100, 4000))
	p.deliver(powerevent.Event{powerevent.KeyLevel: "-1"})
	if got := m.Percent.Get(); got != "73%" {
		t.Errorf("percent = %q, want 73%% under retain", got)
	}

	l.SetPercentPolicy(PercentUnknown)
	p.deliver(powerevent.Event{powerevent.KeyLevel: "-1"})
	if got := m.Percent.Get(); got != metrics.Unknown {
		t.Errorf("percent = %q, want %q after switching policy", got, metrics.Unknown)
	}
}

func TestInitialSnapshot(t *testing.T) {
	p := snapshotPlatform{&fakePlatform{
		snapshot: powerevent.New(42, 100, powerevent.StatusCharging, 500_000, 4000),
	}}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if got := m.Percent.Get(); got != "42%" {
		t.Errorf("percent = %q, want 42%%", got)
	}
	if got := m.Wattage.Get(); got != "2.00 W" {
		t.Errorf("wattage = %q, want 2.00 W", got)
	}
}

func TestInitialSnapshotFailureIsNotFatal(t *testing.T) {
	p := snapshotPlatform{&fakePlatform{snapshotErr: errors.New("no battery")}}
	l, m := newTestListener(p)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if got := m.Percent.Get(); got != metrics.Unknown {
		t.Errorf("percent = %q, want %q", got, metrics.Unknown)
	}
}

func TestRunReleasesOnCancel(t *testing.T) {
	p := &fakePlatform{}
	l, _ := newTestListener(p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for {
		p.mu.Lock()
		registered := p.registers == 1
		p.mu.Unlock()
		if registered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("listener never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unregisters != 1 {
		t.Errorf("unregisters = %d, want 1", p.unregisters)
	}
}

func TestRunSubscriptionFailure(t *testing.T) {
	p := &fakePlatform{registerErr: errors.New("refused")}
	l, _ := newTestListener(p)

	if err := l.Run(context.Background()); !errors.Is(err, ErrSubscriptionFailed) {
		t.Errorf("Run() error = %v, want ErrSubscriptionFailed", err)
	}
}

func TestParsePercentPolicy(t *testing.T) {
	for _, s := range []string{"retain", "unknown"} {
		if _, err := ParsePercentPolicy(s); err != nil {
			t.Errorf("ParsePercentPolicy(%q) error = %v", s, err)
		}
	}
	if _, err := ParsePercentPolicy("drop"); err == nil {
		t.Errorf("ParsePercentPolicy(drop) should fail")
	}
}
