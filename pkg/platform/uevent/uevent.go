// Package uevent receives power_supply change notifications from the Linux
// kernel over a NETLINK_KOBJECT_UEVENT socket.
package uevent

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const (
	subsystemPowerSupply = "power_supply"

	propPrefix    = "POWER_SUPPLY_"
	propName      = propPrefix + "NAME"
	propType      = propPrefix + "TYPE"
	propScope     = propPrefix + "SCOPE"
	supplyBattery = "Battery"
	scopeDevice   = "Device"
)

// Uevent is one kernel object event.
type Uevent struct {
	Action  string
	DevPath string
	Env     map[string]string
}

// Subsystem returns the SUBSYSTEM variable.
func (u *Uevent) Subsystem() string { return u.Env["SUBSYSTEM"] }

// SupplyName returns the power supply name, e.g. BAT0.
func (u *Uevent) SupplyName() string {
	if name := u.Env[propName]; name != "" {
		return name
	}
	if i := strings.LastIndexByte(u.DevPath, '/'); i >= 0 {
		return u.DevPath[i+1:]
	}
	return ""
}

// ParseMessage parses a raw kernel uevent datagram:
//
//	change@/devices/.../power_supply/BAT0\0ACTION=change\0SUBSYSTEM=power_supply\0...
func ParseMessage(b []byte) (*Uevent, error) {
	fields := bytes.Split(b, []byte{0})
	if len(fields) == 0 || len(fields[0]) == 0 {
		return nil, pkgerrors.New("empty uevent message")
	}

	header := string(fields[0])
	if strings.HasPrefix(header, "libudev") {
		return nil, pkgerrors.New("udev monitor messages are not supported")
	}
	action, devpath, ok := strings.Cut(header, "@")
	if !ok {
		return nil, pkgerrors.Errorf("malformed uevent header %q", header)
	}

	u := &Uevent{
		Action:  action,
		DevPath: devpath,
		Env:     make(map[string]string, len(fields)),
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(string(f), "=")
		if !ok || k == "" {
			continue
		}
		u.Env[k] = v
	}
	if a := u.Env["ACTION"]; a != "" {
		u.Action = a
	}
	if p := u.Env["DEVPATH"]; p != "" {
		u.DevPath = p
	}

	return u, nil
}

// ParseUeventFile parses the KEY=VALUE lines of a sysfs uevent file.
func ParseUeventFile(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || k == "" {
			continue
		}
		props[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read uevent file")
	}
	return props, nil
}

// isSystemBattery tells batteries powering the host apart from mains
// adapters and from peripheral batteries (mice, keyboards). Supplies that do
// not report a type count when named like BAT0.
func isSystemBattery(name string, props map[string]string) bool {
	if props[propScope] == scopeDevice {
		return false
	}
	switch props[propType] {
	case supplyBattery:
		return true
	case "":
		return strings.HasPrefix(name, "BAT")
	default:
		return false
	}
}

// isExternalSupply matches adapters whose plug/unplug should refresh the
// battery reading.
func isExternalSupply(props map[string]string) bool {
	t := props[propType]
	return t != "" && t != supplyBattery
}
