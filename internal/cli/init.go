package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

type initResult struct {
	Path          string `json:"path"`
	DBPath        string `json:"db_path"`
	KVPath        string `json:"kv_path"`
	SchemaVersion int    `json:"schema_version"`
	Created       bool   `json:"created"`
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize a new pasfini data directory",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}
		if exists {
			w.Warn("Database already exists at %s", cfg.DBPath)
		} else if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrStorage)
		}

		// Open migrates an existing database and creates a new one.
		st, err := store.Open(cfg.DBPath, cfg.KVPath, store.WithLogger(getLogger(cmd)))
		if err != nil {
			return storeErr(err, "initializing store")
		}
		defer st.Close()

		schemaVersion, err := st.SchemaVersion()
		if err != nil {
			return storeErr(err, "reading schema version")
		}

		result := initResult{
			Path:          cfg.DataDir,
			DBPath:        cfg.DBPath,
			KVPath:        cfg.KVPath,
			SchemaVersion: schemaVersion,
			Created:       !exists,
		}
		if exists {
			w.Success(result, "Database already initialized")
			return nil
		}
		w.Success(result, fmt.Sprintf("Initialized pasfini in %s", cfg.DataDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
