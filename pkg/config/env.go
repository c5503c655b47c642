package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
)

// Environment variables that override the config file.
const (
	EnvSource           = "BATTWATCH_SOURCE"
	EnvPowerSupply      = "BATTWATCH_POWER_SUPPLY"
	EnvInvertCurrent    = "BATTWATCH_INVERT_CURRENT"
	EnvReplayFile       = "BATTWATCH_REPLAY_FILE"
	EnvMalformedPercent = "BATTWATCH_MALFORMED_PERCENT"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return pkgerrors.Wrapf(err, "failed to load env file %s", path)
	}
	return nil
}

// ApplyEnvOverrides reads the BATTWATCH_* variables into f. Overrides are
// kept separately from the file contents, so Save never persists them.
func (f *File) ApplyEnvOverrides() error {
	env := &RawFileConfig{}

	if v, ok := os.LookupEnv(EnvSource); ok {
		env.Source = &v
	}
	if v, ok := os.LookupEnv(EnvPowerSupply); ok {
		env.PowerSupply = &v
	}
	if v, ok := os.LookupEnv(EnvReplayFile); ok {
		env.ReplayFile = &v
	}
	if v, ok := os.LookupEnv(EnvMalformedPercent); ok {
		env.MalformedPercent = &v
	}
	if v, ok := os.LookupEnv(EnvInvertCurrent); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return pkgerrors.Wrapf(err, "invalid %s", EnvInvertCurrent)
		}
		env.InvertCurrent = &b
	}

	f.mu.Lock()
	f.env = env
	f.mu.Unlock()

	return nil
}
