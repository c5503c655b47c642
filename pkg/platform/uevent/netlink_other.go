//go:build !linux

package uevent

import (
	"runtime"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battwatch/pkg/listener"
)

// Register fails outside Linux: there is no kobject uevent facility.
func (p *Platform) Register(action string, _ listener.Handler) (listener.Registration, error) {
	return nil, pkgerrors.Errorf("kernel uevents are not available on %s", runtime.GOOS)
}
