package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8080"

// appConfig is the merged file + flag configuration.
type appConfig struct {
	ServerURL string `yaml:"server_url"`
	WSURL     string `yaml:"ws_url"`
	DataDir   string `yaml:"data_dir"`
}

// loadConfig reads the YAML config file (default ~/.forumchat/config.yaml,
// absence is fine) and applies command-line flag overrides.
func loadConfig(path string) (appConfig, error) {
	cfg := appConfig{ServerURL: defaultServerURL}

	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".forumchat", "config.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// no config file, defaults apply
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}
	if flagWSURL != "" {
		cfg.WSURL = flagWSURL
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".forumchat")
	}
	return cfg, nil
}

// chatURL derives the websocket endpoint from the server origin unless an
// explicit ws_url is configured.
func (c appConfig) chatURL() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}
