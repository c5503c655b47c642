// Package listener bridges power state notifications from a Platform into the
// published metric cells.
package listener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/metrics"
	"github.com/charlie0129/battwatch/pkg/powerevent"
	"github.com/charlie0129/battwatch/pkg/state"
)

// PercentPolicy decides what happens to the percentage cell when an event
// lacks a usable level or scale.
type PercentPolicy string

const (
	// PercentRetain keeps the previously published value.
	PercentRetain PercentPolicy = "retain"
	// PercentUnknown publishes metrics.Unknown.
	PercentUnknown PercentPolicy = "unknown"
)

// ParsePercentPolicy returns the policy named s, or an error.
func ParsePercentPolicy(s string) (PercentPolicy, error) {
	switch PercentPolicy(s) {
	case PercentRetain, PercentUnknown:
		return PercentPolicy(s), nil
	}
	return "", errors.New("malformed percent policy must be one of retain, unknown")
}

// Option configures a Listener.
type Option func(*Listener)

// WithPercentPolicy sets the malformed percentage policy. Default is PercentRetain.
func WithPercentPolicy(p PercentPolicy) Option {
	return func(l *Listener) { l.percentPolicy.Store(&p) }
}

// WithLogger sets the logger used by the listener.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Listener) { l.log = logger }
}

// Listener owns one subscription to ActionBatteryChanged and publishes the
// derived metrics of every delivered event.
type Listener struct {
	platform      Platform
	metrics       *state.Metrics
	percentPolicy atomic.Pointer[PercentPolicy]
	log           logrus.FieldLogger

	mu         sync.Mutex
	reg        Registration
	registered bool

	delivered atomic.Uint64
}

// New returns a stopped Listener publishing into m.
func New(p Platform, m *state.Metrics, opts ...Option) *Listener {
	l := &Listener{
		platform: p,
		metrics:  m,
		log:      logrus.StandardLogger(),
	}
	l.SetPercentPolicy(PercentRetain)
	for _, o := range opts {
		o(l)
	}
	return l
}

// Start registers with the platform. A rejected registration is returned as
// a *SubscriptionError and is not retried.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.registered {
		return ErrAlreadyStarted
	}

	reg, err := l.platform.Register(powerevent.ActionBatteryChanged, l.handle)
	if err != nil {
		return &SubscriptionError{Action: powerevent.ActionBatteryChanged, Err: err}
	}
	if reg == nil {
		return &SubscriptionError{Action: powerevent.ActionBatteryChanged, Err: errors.New("platform returned no registration")}
	}
	l.reg = reg
	l.registered = true
	l.log.Info("registered and listening power state notifications")

	if s, ok := l.platform.(Snapshotter); ok {
		ev, err := s.Snapshot()
		if err != nil {
			l.log.WithError(err).Warn("failed to read initial power state, waiting for the first notification")
		} else {
			l.handle(ev)
		}
	}

	return nil
}

// Stop unregisters from the platform. It is a no-op on a listener that was
// never started or is already stopped.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registered {
		return
	}
	l.registered = false
	reg := l.reg
	l.reg = nil

	if err := reg.Unregister(); err != nil {
		l.log.WithError(err).Error("failed to unregister power state notifications")
		return
	}
	l.log.Info("stopped listening power state notifications")
}

// Run starts the listener and blocks until ctx is done. The subscription is
// released on every return path.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	defer l.Stop()

	<-ctx.Done()
	return nil
}

// SetPercentPolicy replaces the malformed percentage policy. It takes effect
// from the next event and may be called while events are delivered.
func (l *Listener) SetPercentPolicy(p PercentPolicy) {
	l.percentPolicy.Store(&p)
}

// PercentPolicy returns the malformed percentage policy in effect.
func (l *Listener) PercentPolicy() PercentPolicy {
	return *l.percentPolicy.Load()
}

// Delivered returns the number of events processed so far.
func (l *Listener) Delivered() uint64 {
	return l.delivered.Load()
}

func (l *Listener) handle(ev powerevent.Event) {
	l.delivered.Add(1)
	r := metrics.Derive(ev)

	switch {
	case r.PercentOK:
		l.metrics.Percent.Set(r.Percent)
	case l.PercentPolicy() == PercentUnknown:
		l.metrics.Percent.Set(metrics.Unknown)
	default:
		l.log.WithFields(logrus.Fields{
			"level": ev[powerevent.KeyLevel],
			"scale": ev[powerevent.KeyScale],
		}).Debug("event has no usable charge level, keeping previous percentage")
	}
	l.metrics.Wattage.Set(r.Wattage)

	l.log.WithFields(logrus.Fields{
		"percent":      l.metrics.Percent.Get(),
		"wattage":      r.Wattage,
		"wattageState": r.WattageState,
		"status":       ev.Status(),
	}).Trace("power state event processed")
}
