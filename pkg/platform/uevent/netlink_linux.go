//go:build linux

package uevent

import (
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/charlie0129/battwatch/pkg/listener"
	"github.com/charlie0129/battwatch/pkg/powerevent"
)

const (
	// kernelGroup is the multicast group the kernel broadcasts uevents on.
	// Group 2 carries udev's re-broadcasts, which use a different format.
	kernelGroup = 1
	recvBufSize = 1 << 20
)

var _ listener.Platform = &Platform{}

type registration struct {
	f    *os.File
	once sync.Once
	done chan struct{}
}

// Register opens a netlink socket and delivers battery uevents to h from a
// dedicated goroutine, in the order the kernel sends them.
func (p *Platform) Register(action string, h listener.Handler) (listener.Registration, error) {
	if action != powerevent.ActionBatteryChanged {
		return nil, pkgerrors.Errorf("unsupported action %q", action)
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create netlink socket")
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufSize); err != nil {
		logrus.WithError(err).Debug("failed to enlarge netlink receive buffer")
	}

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelGroup}); err != nil {
		_ = unix.Close(fd)
		return nil, pkgerrors.Wrap(err, "failed to bind netlink socket")
	}

	name, err := p.discover()
	if err != nil {
		logrus.WithError(err).Warn("no battery found yet, following any system battery")
		name = ""
	}

	// A non-blocking fd goes through the runtime poller, so Close unblocks Read.
	r := &registration{
		f:    os.NewFile(uintptr(fd), "netlink-uevent"),
		done: make(chan struct{}),
	}
	go p.readLoop(r, name, h)

	logrus.WithField("powerSupply", name).Debug("netlink uevent socket bound")
	return r, nil
}

func (p *Platform) readLoop(r *registration, name string, h listener.Handler) {
	defer close(r.done)
	p.receive(r.f, name, h)
}

// Unregister closes the socket and waits for the read goroutine to exit.
// It must not be called from the handler.
func (r *registration) Unregister() error {
	var err error
	r.once.Do(func() {
		err = r.f.Close()
	})
	<-r.done
	if err != nil {
		return pkgerrors.Wrap(err, "failed to close netlink socket")
	}
	return nil
}
