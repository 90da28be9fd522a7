// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package garage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage"
	"gopkg.in/yaml.v3"
)

// minSaltLength is the shortest salt accepted for key derivation.
const minSaltLength = 8

// Config holds the settings Open needs to bootstrap a Garage.
type Config struct {
	// Autosave commits after every mutating operation.
	// Default: true
	Autosave bool `yaml:"autosave"`

	// Stores lists the storage units to open. New records go to the first.
	// Default: one badger unit in ./garage-data
	Stores []storage.Description `yaml:"stores"`

	// Encryption configures payload encryption. Disabled when PassphraseEnv
	// is empty.
	Encryption EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig derives an AES-GCM key from a passphrase held in the
// environment. The passphrase itself never appears in configuration files.
type EncryptionConfig struct {
	// PassphraseEnv names the environment variable holding the passphrase.
	PassphraseEnv string `yaml:"passphrase_env,omitempty"`

	// Salt is mixed into key derivation. Changing it changes the key.
	Salt string `yaml:"salt,omitempty"`
}

// Enabled reports whether payloads are encrypted.
func (c EncryptionConfig) Enabled() bool {
	return c.PassphraseEnv != ""
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAutosaveEnabled sets whether mutating operations commit immediately.
func WithAutosaveEnabled(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Autosave = enabled
	}
}

// WithStores replaces the storage units to open.
func WithStores(descs ...storage.Description) ConfigOption {
	return func(c *Config) {
		c.Stores = descs
	}
}

// WithBadgerDir replaces the storage units with a single badger unit in dir.
func WithBadgerDir(dir string) ConfigOption {
	return func(c *Config) {
		c.Stores = []storage.Description{{Name: "default", Format: storage.FormatBadger, Location: dir}}
	}
}

// WithPassphraseEnv enables encryption with a passphrase read from envVar.
func WithPassphraseEnv(envVar, salt string) ConfigOption {
	return func(c *Config) {
		c.Encryption = EncryptionConfig{PassphraseEnv: envVar, Salt: salt}
	}
}

// DefaultConfig returns a Config with autosave on, one badger unit in
// ./garage-data and no encryption.
func DefaultConfig() *Config {
	return &Config{
		Autosave: true,
		Stores: []storage.Description{
			{Name: "default", Format: storage.FormatBadger, Location: "garage-data"},
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBadgerDir("/var/lib/app/garage"),
//	    WithPassphraseEnv("APP_GARAGE_KEY", "per-install-salt"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if err := storage.ValidateDescriptions(c.Stores); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Encryption.Enabled() && len(c.Encryption.Salt) < minSaltLength {
		return fmt.Errorf("%w: encryption salt must be at least %d bytes", ErrInvalidConfig, minSaltLength)
	}
	return nil
}

// Encryptor builds the encryption hook the configuration describes.
func (c *Config) Encryptor() (encryption.Encryptor, error) {
	if !c.Encryption.Enabled() {
		return encryption.Passthrough, nil
	}
	passphrase := os.Getenv(c.Encryption.PassphraseEnv)
	if passphrase == "" {
		return nil, fmt.Errorf("%w: $%s is not set", encryption.ErrMissingPassphrase, c.Encryption.PassphraseEnv)
	}
	return encryption.FromPassphrase([]byte(passphrase), []byte(c.Encryption.Salt))
}

// LoadConfig reads a YAML configuration file. Settings the file omits keep
// their DefaultConfig values; unknown settings are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// WriteConfig writes cfg to path as YAML.
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
