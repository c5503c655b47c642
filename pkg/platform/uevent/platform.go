package uevent

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/listener"
	"github.com/charlie0129/battwatch/pkg/powerevent"
)

var _ listener.Snapshotter = &Platform{}

var defaultSysfsRoot = "/sys"

// Options configures a Platform.
type Options struct {
	// PowerSupply is the name of the battery to follow, e.g. BAT0.
	// Empty means the first system battery found.
	PowerSupply string
	// InvertCurrent flips the sign of CURRENT_NOW.
	InvertCurrent bool
	// SysfsRoot defaults to /sys.
	SysfsRoot string
}

// Platform delivers power_supply uevents as power events.
type Platform struct {
	opts Options

	// getBatteries is battery.GetAll, swapped in tests.
	getBatteries func() ([]*battery.Battery, error)
}

// New returns a Platform. Nothing is opened until Register.
func New(opts Options) *Platform {
	if opts.SysfsRoot == "" {
		opts.SysfsRoot = defaultSysfsRoot
	}
	return &Platform{
		opts:         opts,
		getBatteries: battery.GetAll,
	}
}

func (p *Platform) supplyDir(name string) string {
	return filepath.Join(p.opts.SysfsRoot, "class", "power_supply", name)
}

func (p *Platform) readProps(name string) (map[string]string, error) {
	path := filepath.Join(p.supplyDir(name), "uevent")
	fp, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open %s", path)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", path)
		}
	}(fp)

	props, err := ParseUeventFile(fp)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to parse %s", path)
	}

	// Older kernels do not include the type in the uevent file.
	if props[propType] == "" {
		if b, err := os.ReadFile(filepath.Join(p.supplyDir(name), "type")); err == nil {
			props[propType] = string(trimNewline(b))
		}
	}
	if props[propName] == "" {
		props[propName] = name
	}

	return props, nil
}

// discover returns the name of the battery to follow.
func (p *Platform) discover() (string, error) {
	if p.opts.PowerSupply != "" {
		return p.opts.PowerSupply, nil
	}

	dirs, err := filepath.Glob(p.supplyDir("*"))
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to list power supplies")
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		name := filepath.Base(dir)
		props, err := p.readProps(name)
		if err != nil {
			logrus.WithError(err).Debugf("skipping power supply %s", name)
			continue
		}
		if isSystemBattery(name, props) {
			return name, nil
		}
	}

	return "", pkgerrors.New("no system battery found")
}

// Snapshot reads the current battery state from sysfs, falling back to
// github.com/distatus/battery when sysfs is not usable.
func (p *Platform) Snapshot() (powerevent.Event, error) {
	name, err := p.discover()
	if err == nil {
		props, err := p.readProps(name)
		if err == nil {
			return ToEvent(props, p.opts.InvertCurrent), nil
		}
		logrus.WithError(err).Debug("failed to read battery from sysfs")
	} else {
		logrus.WithError(err).Debug("failed to discover battery in sysfs")
	}

	return p.snapshotFromBatteryLib()
}

func (p *Platform) snapshotFromBatteryLib() (powerevent.Event, error) {
	batteries, err := p.getBatteries()
	// Partial errors are per battery, so skip only the broken ones.
	errs, partial := err.(battery.Errors)
	if err != nil && !partial {
		return nil, pkgerrors.Wrap(err, "failed to read batteries")
	}

	for i, bat := range batteries {
		if partial && i < len(errs) && errs[i] != nil {
			continue
		}
		if bat == nil || bat.Full == 0 {
			continue
		}
		return FromBattery(bat), nil
	}

	return nil, pkgerrors.New("no batteries found")
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
