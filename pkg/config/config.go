package config

// Source names the platform that delivers power notifications.
const (
	SourceUevent = "uevent"
	SourceReplay = "replay"
)

type Config interface {
	Source() string
	PowerSupply() string
	InvertCurrent() bool
	ReplayFile() string
	MalformedPercent() string
	AllowNonRootAccess() bool

	SetSource(string)
	SetPowerSupply(string)
	SetInvertCurrent(bool)
	SetReplayFile(string)
	SetMalformedPercent(string)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
