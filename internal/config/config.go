package config

import (
	"os"
	"path/filepath"

	"github.com/ALT-F4-LLC/pasfini/internal/sink"
)

const (
	dbFileName = "pasfini.db"
	kvFileName = "config.json"
)

// Config holds resolved configuration for the data directory, its two
// storage tiers and the share sink.
type Config struct {
	DataDir   string // resolved .pasfini directory path
	DBPath    string // issues and photos
	KVPath    string // rooms, assignees and preferences
	EnvVarSet bool   // whether PASFINI_PATH was used

	// ExportDir is where archives are written by default. PASFINI_EXPORT_DIR
	// overrides the working directory.
	ExportDir string

	// Share holds S3 settings; ShareEnabled is false when no bucket is set.
	Share        sink.S3Config
	ShareEnabled bool
}

// Resolve returns the current configuration by checking PASFINI_PATH first,
// then falling back to $PWD/.pasfini.
func Resolve() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Join(cwd, ".pasfini")
	envVarSet := false
	if envPath := os.Getenv("PASFINI_PATH"); envPath != "" {
		dataDir = envPath
		envVarSet = true
	}

	exportDir := cwd
	if dir := os.Getenv("PASFINI_EXPORT_DIR"); dir != "" {
		exportDir = dir
	}

	share, enabled := sink.S3ConfigFromEnv()

	return &Config{
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, dbFileName),
		KVPath:       filepath.Join(dataDir, kvFileName),
		EnvVarSet:    envVarSet,
		ExportDir:    exportDir,
		Share:        share,
		ShareEnabled: enabled,
	}, nil
}

// Exists checks if the data directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	for _, p := range []string{c.DataDir, c.DBPath} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}
