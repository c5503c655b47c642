package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Source:             ptr.To(SourceUevent),
		PowerSupply:        ptr.To(""),
		InvertCurrent:      ptr.To(false),
		ReplayFile:         ptr.To(""),
		MalformedPercent:   ptr.To("retain"),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c *RawFileConfig
	// env holds overrides from the environment. They win over c and are
	// never written back by Save.
	env      *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		env:      &RawFileConfig{},
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		env:      &RawFileConfig{},
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Source             *string `json:"source,omitempty"`
	PowerSupply        *string `json:"powerSupply,omitempty"`
	InvertCurrent      *bool   `json:"invertCurrent,omitempty"`
	ReplayFile         *string `json:"replayFile,omitempty"`
	MalformedPercent   *string `json:"malformedPercent,omitempty"`
	AllowNonRootAccess *bool   `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Source:             ptr.To(c.Source()),
		PowerSupply:        ptr.To(c.PowerSupply()),
		InvertCurrent:      ptr.To(c.InvertCurrent()),
		ReplayFile:         ptr.To(c.ReplayFile()),
		MalformedPercent:   ptr.To(c.MalformedPercent()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// value returns the first non-nil field among env, config file and defaults.
func value[T any](f *File, field func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.env != nil {
		if v := field(f.env); v != nil {
			return *v
		}
	}
	if v := field(f.c); v != nil {
		return *v
	}
	return *field(defaultFileConfig)
}

func (f *File) set(fn func(*RawFileConfig)) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.c)
}

func (f *File) Source() string {
	return value(f, func(r *RawFileConfig) *string { return r.Source })
}

func (f *File) PowerSupply() string {
	return value(f, func(r *RawFileConfig) *string { return r.PowerSupply })
}

func (f *File) InvertCurrent() bool {
	return value(f, func(r *RawFileConfig) *bool { return r.InvertCurrent })
}

func (f *File) ReplayFile() string {
	return value(f, func(r *RawFileConfig) *string { return r.ReplayFile })
}

func (f *File) MalformedPercent() string {
	return value(f, func(r *RawFileConfig) *string { return r.MalformedPercent })
}

func (f *File) AllowNonRootAccess() bool {
	return value(f, func(r *RawFileConfig) *bool { return r.AllowNonRootAccess })
}

func (f *File) SetSource(s string) {
	f.set(func(r *RawFileConfig) { r.Source = &s })
}

func (f *File) SetPowerSupply(s string) {
	f.set(func(r *RawFileConfig) { r.PowerSupply = &s })
}

func (f *File) SetInvertCurrent(b bool) {
	f.set(func(r *RawFileConfig) { r.InvertCurrent = &b })
}

func (f *File) SetReplayFile(s string) {
	f.set(func(r *RawFileConfig) { r.ReplayFile = &s })
}

func (f *File) SetMalformedPercent(s string) {
	f.set(func(r *RawFileConfig) { r.MalformedPercent = &s })
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.set(func(r *RawFileConfig) { r.AllowNonRootAccess = &b })
}

// Validate checks values that would otherwise only fail at daemon start.
func (f *File) Validate() error {
	switch f.Source() {
	case SourceUevent:
	case SourceReplay:
		if f.ReplayFile() == "" {
			return pkgerrors.New("replayFile must be set when source is replay")
		}
	default:
		return pkgerrors.Errorf("unknown source %q, must be one of %s, %s", f.Source(), SourceUevent, SourceReplay)
	}

	switch f.MalformedPercent() {
	case "retain", "unknown":
	default:
		return pkgerrors.Errorf("unknown malformedPercent %q, must be one of retain, unknown", f.MalformedPercent())
	}

	return nil
}

// Reload re-reads the file and keeps the current values unless the new ones
// load and pass Validate. Environment overrides stay in effect.
func (f *File) Reload() error {
	f.mu.RLock()
	next := &File{
		filepath: f.filepath,
		env:      f.env,
		mu:       &sync.RWMutex{},
	}
	f.mu.RUnlock()

	if err := next.Load(); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in %s", f.filepath)
	}

	f.mu.Lock()
	f.c = next.c
	f.mu.Unlock()
	return nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"source":             f.Source(),
		"powerSupply":        f.PowerSupply(),
		"invertCurrent":      f.InvertCurrent(),
		"replayFile":         f.ReplayFile(),
		"malformedPercent":   f.MalformedPercent(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
