package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFileType is returned for config files that are not YAML.
var ErrUnknownFileType = errors.New("config file doesn't have a known file suffix")

// fileContents is the layout of a config file:
//
//	env:
//	  SUSPENSE_TIMEOUT: 500ms
//	  LOG_LEVEL: debug
type fileContents struct {
	Env map[string]string `yaml:"env"`
}

// LoadFile reads the env section of a YAML config file.
func LoadFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, filepath.Base(path))
	}

	bts, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	var contents fileContents
	if err := yaml.Unmarshal(bts, &contents); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if contents.Env == nil {
		contents.Env = map[string]string{}
	}

	return contents.Env, nil
}
