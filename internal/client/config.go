package client

import (
	"encoding/json"
	"os"

	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/pkg/errors"
)

const credentialsfile = ".qrbridge"

// A Config holds client's configuration.
type Config struct {
	Endpoint string           `json:"endpoint"`
	Email    string           `json:"email"`
	Session  qrclient.Session `json:"session"`
}

// Remove removes the credential files from the current directory.
func Remove() error {
	return os.Remove(credentialsfile)
}

// Load gets the configuration from the current folder according to `credentialsfile` const.
func Load() (Config, error) {
	var cfg Config

	payload, err := os.ReadFile(credentialsfile)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read credentials file")
	}

	err = json.Unmarshal(payload, &cfg)
	return cfg, errors.Wrap(err, "could not parse config")
}

// Save stores the configuration in the current folder according to `credentialsfile` const.
func Save(cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "could not serialize config")
	}

	// Credentials, owner-only.
	err = os.WriteFile(credentialsfile, payload, 0600)
	return errors.Wrap(err, "could not store credentials")
}
