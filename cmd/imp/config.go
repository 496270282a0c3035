package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// projectConfig holds defaults read from an optional imp.yaml file in the
// current directory, overridden by any flag the user passes explicitly.
type projectConfig struct {
	StrictBytecode bool   `yaml:"strict_bytecode"`
	LogLevel       string `yaml:"log_level"`
}

// loadProjectConfig reads imp.yaml from the current directory, if present.
// A missing file is not an error; a malformed one is.
func loadProjectConfig() (projectConfig, error) {
	data, err := os.ReadFile("imp.yaml")
	if os.IsNotExist(err) {
		return projectConfig{}, nil
	}
	if err != nil {
		return projectConfig{}, err
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return projectConfig{}, err
	}
	return cfg, nil
}
