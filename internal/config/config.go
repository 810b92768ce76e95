// Package config reads the relay's process configuration from the
// environment.  Fields are bound with `env` struct tags; unset variables
// keep their defaults.
package config

// Config is the relay's whole configuration surface.
type Config struct {
	// Port is the listen port for the websocket/HTTP endpoint.
	Port int `env:"PORT"`
	// AllowedOrigins is a comma-separated list of permitted Origin
	// headers for websocket upgrades.  Empty means accept any origin.
	AllowedOrigins string `env:"CHAT_ALLOWED_ORIGINS"`
}

// DefaultPort is used when PORT is unset.
const DefaultPort = 5000

// New reads the environment and returns the resulting Config.
func New() (*Config, error) {
	conf := &Config{}
	if err := parse(conf); err != nil {
		return nil, err
	}

	if conf.Port == 0 {
		conf.Port = DefaultPort
	}

	return conf, nil
}
