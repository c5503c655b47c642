package uevent

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/listener"
)

const maxMsgSize = 64 << 10

// receive reads one uevent datagram per Read from r until r is closed or
// fails, and hands battery events to h.
func (p *Platform) receive(r io.Reader, name string, h listener.Handler) {
	buf := make([]byte, maxMsgSize)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				return
			}
			if errors.Is(err, syscall.ENOBUFS) {
				// The kernel dropped messages. Resync from sysfs so the
				// published state does not stay stale.
				logrus.Warn("netlink receive buffer overrun, re-reading battery state")
				p.deliverSnapshot(h)
				continue
			}
			logrus.WithError(err).Error("failed to read from netlink socket, no more battery events will be received")
			return
		}

		u, err := ParseMessage(buf[:n])
		if err != nil {
			logrus.WithError(err).Trace("ignoring unparsable uevent")
			continue
		}
		p.dispatch(u, name, h)
	}
}

// dispatch delivers u to h when it describes the followed battery, and
// re-reads the battery when an adapter changes.
func (p *Platform) dispatch(u *Uevent, name string, h listener.Handler) {
	if u.Subsystem() != subsystemPowerSupply {
		return
	}

	switch {
	case p.matches(u, name):
		logrus.WithFields(logrus.Fields{
			"action":      u.Action,
			"powerSupply": u.SupplyName(),
		}).Debug("received battery uevent")
		h(ToEvent(u.Env, p.opts.InvertCurrent))
	case isExternalSupply(u.Env):
		// Adapter plugged or unplugged. Some drivers only report this on
		// the adapter, so read the battery right away.
		logrus.WithField("powerSupply", u.SupplyName()).Debug("received power adapter uevent")
		p.deliverSnapshot(h)
	}
}

func (p *Platform) matches(u *Uevent, name string) bool {
	if name != "" {
		return u.SupplyName() == name
	}
	return isSystemBattery(u.SupplyName(), u.Env)
}

func (p *Platform) deliverSnapshot(h listener.Handler) {
	ev, err := p.Snapshot()
	if err != nil {
		logrus.WithError(err).Warn("failed to read battery state")
		return
	}
	h(ev)
}
