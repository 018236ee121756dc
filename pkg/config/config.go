// Package config holds the file configuration shared by the CLI and by
// embedding applications.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

// DomainConfig pins the verifier to one program on one network. None of
// the fields have a network default: a missing value fails validation
// instead of falling back to "current network".
type DomainConfig struct {
	ProgramID string  `yaml:"program_id" validate:"required"`
	Cluster   string  `yaml:"cluster" validate:"required,oneof=mainnet testnet devnet localnet"`
	Versions  []uint8 `yaml:"versions" validate:"required,min=1"`
}

// ReplayConfig selects a replay protection backend. Driver specific
// settings are decoded later by the backend itself.
type ReplayConfig struct {
	Driver string    `yaml:"driver" validate:"required"`
	Config yaml.Node `yaml:"config"`
}

// KeyringConfig selects a local key storage backend
type KeyringConfig struct {
	Driver string    `yaml:"driver" validate:"required"`
	Config yaml.Node `yaml:"config"`
}

// Config contains all the configuration necessary to verify and sign permits
type Config struct {
	BaseDir string        `yaml:"base_dir"`
	Domain  DomainConfig  `yaml:"domain"`
	Replay  ReplayConfig  `yaml:"replay_protection"`
	Keyring KeyringConfig `yaml:"keyring"`
	// Policy restricts listed authorizers to the named scopes. An
	// authorizer absent from the map is unrestricted.
	Policy map[string][]string `yaml:"policy" validate:"dive,dive,oneof=place cancel withdraw set_leverage faucet"`
}

var defaultConfig = Config{
	BaseDir: "/var/lib/permitory",
	Domain: DomainConfig{
		Versions: []uint8{1},
	},
	Replay: ReplayConfig{
		Driver: "file",
	},
	Keyring: KeyringConfig{
		Driver: "file",
	},
}

// Read reads the config from a file
func (c *Config) Read(file string) error {
	buf, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(buf, c); err != nil {
		return err
	}
	return nil
}

func (c *Config) GetBaseDir() string { return c.BaseDir }

func Default() *Config {
	c := defaultConfig
	return &c
}

func Validator() *validator.Validate {
	return validator.New()
}

// GlobalContext carries process wide settings into backend factories
type GlobalContext interface {
	GetBaseDir() string
}
