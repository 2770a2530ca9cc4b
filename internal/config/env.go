package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "HOMEBUS_"

// Env holds the settings taken from the environment.
type Env struct {
	// Config is the configuration file path.
	Config string `env:"CONFIG" envDefault:"config.toml"`

	// LogLevel is the minimum log level.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Debug forces debug mode on.
	Debug bool `env:"DEBUG"`

	// Platform overrides the document's platform.
	Platform string `env:"PLATFORM"`

	// SlowPull is the pull duration that triggers a warning. Zero disables it.
	SlowPull time.Duration `env:"SLOW_PULL"`
}

// LoadEnv reads HOMEBUS_* variables from environ, or from the process
// environment when environ is nil.
func LoadEnv(environ map[string]string) (Env, error) {
	var e Env
	err := env.ParseWithOptions(&e, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	return e, err
}

// Apply overrides doc with the environment settings.
func (e Env) Apply(doc *Document) {
	if e.Debug {
		doc.Debug = true
	}
	if e.Platform != "" {
		doc.Platform = e.Platform
	}
}
