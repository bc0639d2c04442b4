package cmd

import (
	"os"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ChainEndConfig names one side of a configured connection: the chain
// together with the client it should use (or create) when relaying.
// This mirrors the teacher's PathEnd, narrowed to the fields a
// connection handshake alone needs (no channel/port fields, since those
// belong to a channel-layer config this package does not define).
type ChainEndConfig struct {
	ChainID  string `yaml:"chain-id"`
	ClientID string `yaml:"client-id,omitempty"`
}

// ConnectionConfig is one entry in the config file: a pair of chain ends
// plus the delay period to request when opening a new connection.
type ConnectionConfig struct {
	Src         ChainEndConfig `yaml:"src"`
	Dst         ChainEndConfig `yaml:"dst"`
	DelayPeriod time.Duration  `yaml:"delay-period"`
}

// Config is the on-disk representation this CLI reads and writes.
type Config struct {
	Connections []ConnectionConfig `yaml:"connections"`
}

// loadConfig reads and parses the config file at path, holding the
// (exclusive) config file lock for the duration of the read so a
// concurrent `connection config-add` invocation cannot produce a torn
// write underneath it.
func loadConfig(path string) (*Config, error) {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, err
	}
	defer fl.Unlock()

	bz, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(bz, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// saveConfig writes cfg to path under the same lock loadConfig takes, so
// the two never interleave.
func saveConfig(path string, cfg *Config) error {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return err
	}
	defer fl.Unlock()

	bz, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}

// find returns the configured connection naming srcChainID/dstChainID in
// either order, or false if none matches.
func (c *Config) find(srcChainID, dstChainID string) (ConnectionConfig, bool) {
	for _, conn := range c.Connections {
		if conn.Src.ChainID == srcChainID && conn.Dst.ChainID == dstChainID {
			return conn, true
		}
		if conn.Src.ChainID == dstChainID && conn.Dst.ChainID == srcChainID {
			return conn, true
		}
	}
	return ConnectionConfig{}, false
}
