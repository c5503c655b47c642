// Package replay is a Platform that plays back a scripted sequence of power
// events. It stands in for real hardware on hosts without a battery.
package replay

import (
	"os"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/battwatch/pkg/listener"
	"github.com/charlie0129/battwatch/pkg/powerevent"
)

var _ listener.Platform = &Platform{}

// Step is one scripted event. After is the delay since the previous step.
// Fields left out are absent from the event.
type Step struct {
	After   time.Duration `yaml:"after"`
	Level   *int64        `yaml:"level,omitempty"`
	Scale   *int64        `yaml:"scale,omitempty"`
	Status  string        `yaml:"status,omitempty"`
	Current *int64        `yaml:"current,omitempty"`
	Voltage *int64        `yaml:"voltage,omitempty"`
}

// Event converts s into a powerevent.Event.
func (s Step) Event() powerevent.Event {
	ev := powerevent.Event{}
	if s.Status != "" {
		ev[powerevent.KeyStatus] = string(powerevent.ParseStatus(s.Status))
	}
	set := func(key string, v *int64) {
		if v != nil {
			ev.SetInt(key, *v)
		}
	}
	set(powerevent.KeyLevel, s.Level)
	set(powerevent.KeyScale, s.Scale)
	set(powerevent.KeyCurrentNow, s.Current)
	set(powerevent.KeyVoltage, s.Voltage)
	return ev
}

// Script is the YAML document read by Load:
//
//	loop: false
//	steps:
//	  - {level: 73, scale: 100, status: charging, current: 1500000, voltage: 5000}
//	  - {after: 5s, level: 74, scale: 100, status: full, current: 0, voltage: 5000}
type Script struct {
	Loop  bool   `yaml:"loop"`
	Steps []Step `yaml:"steps"`
}

// Parse decodes a script.
func Parse(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal replay script")
	}
	if len(s.Steps) == 0 {
		return nil, pkgerrors.New("replay script has no steps")
	}
	for i, st := range s.Steps {
		if st.After < 0 {
			return nil, pkgerrors.Errorf("step %d: negative delay %s", i, st.After)
		}
	}
	if s.Loop {
		var total time.Duration
		for _, st := range s.Steps {
			total += st.After
		}
		if total == 0 {
			return nil, pkgerrors.New("a looping replay script needs at least one delay")
		}
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read replay script %s", path)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid replay script %s", path)
	}
	return s, nil
}

// Platform plays a Script to whoever registers.
type Platform struct {
	script *Script
}

// New returns a Platform for s.
func New(s *Script) *Platform {
	return &Platform{script: s}
}

type registration struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Register starts playback on a new goroutine.
func (p *Platform) Register(action string, h listener.Handler) (listener.Registration, error) {
	if action != powerevent.ActionBatteryChanged {
		return nil, pkgerrors.Errorf("unsupported action %q", action)
	}
	if p.script == nil || len(p.script.Steps) == 0 {
		return nil, pkgerrors.New("no replay script loaded")
	}

	r := &registration{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go p.play(r, h)
	return r, nil
}

func (p *Platform) play(r *registration, h listener.Handler) {
	defer close(r.done)

	for {
		for i, st := range p.script.Steps {
			if st.After > 0 {
				t := time.NewTimer(st.After)
				select {
				case <-r.stop:
					t.Stop()
					return
				case <-t.C:
				}
			} else {
				select {
				case <-r.stop:
					return
				default:
				}
			}

			logrus.WithField("step", i).Trace("replaying power event")
			h(st.Event())
		}

		if !p.script.Loop {
			logrus.Debug("replay script finished")
			<-r.stop
			return
		}
	}
}

// Unregister stops playback and waits for it to finish. Safe to call twice.
func (r *registration) Unregister() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	return nil
}
