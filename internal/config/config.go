// Package config resolves parci's runtime configuration.
// Priority: env vars > platform defaults.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds all parci configuration.
type Config struct {
	ParameterDB       string
	ParameterDriver   string
	ParameterPassword string
	GitHookStateDB    string
	Debug             bool
}

// Load resolves the configuration from the environment.
func Load() Config {
	cfg := Config{
		ParameterDB:     defaultParameterDB(),
		ParameterDriver: "local",
	}

	if v := os.Getenv("PARCI_PARAMETER_DB"); v != "" {
		cfg.ParameterDB = v
	}
	if v := os.Getenv("PARCI_PARAMETER_DRIVER"); v != "" {
		cfg.ParameterDriver = v
	}
	cfg.ParameterPassword = os.Getenv("PARCI_PARAMETER_DB_PASSWORD")

	cfg.GitHookStateDB = filepath.Join(filepath.Dir(cfg.ParameterDB), "git-hook-state.db")
	if v := os.Getenv("PARCI_GIT_HOOK_STATE_DB"); v != "" {
		cfg.GitHookStateDB = v
	}

	if v := os.Getenv("PARCI_DEBUG"); v != "" {
		cfg.Debug = v == "true" || v == "1"
	}

	return cfg
}

func defaultParameterDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Parci", "params.db")
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "parci", "params.db")
}
