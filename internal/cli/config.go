package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

type configInfo struct {
	DataDir       string `json:"data_dir"`
	DBPath        string `json:"db_path"`
	KVPath        string `json:"kv_path"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	SchemaVersion int    `json:"schema_version"`
	ExportDir     string `json:"export_dir"`
	PathEnvSet    bool   `json:"pasfini_path_set"`
	ShareEnabled  bool   `json:"share_enabled"`
	ShareBucket   string `json:"share_bucket,omitempty"`
	ShareEndpoint string `json:"share_endpoint,omitempty"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display pasfini configuration",
	Annotations: map[string]string{"skipDB": "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			DataDir:       cfg.DataDir,
			DBPath:        cfg.DBPath,
			KVPath:        cfg.KVPath,
			ExportDir:     cfg.ExportDir,
			PathEnvSet:    cfg.EnvVarSet,
			ShareEnabled:  cfg.ShareEnabled,
			ShareBucket:   cfg.Share.Bucket,
			ShareEndpoint: cfg.Share.Endpoint,
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}
		if !exists {
			w.Warn("No pasfini database found. Run 'pasfini init' to create one.")
			w.Success(info, formatConfigHuman(info, true))
			return nil
		}

		st, err := store.Open(cfg.DBPath, cfg.KVPath, store.WithLogger(getLogger(cmd)))
		if err != nil {
			return storeErr(err, "opening store")
		}
		defer st.Close()

		if info.SchemaVersion, err = st.SchemaVersion(); err != nil {
			return storeErr(err, "reading schema version")
		}
		stat, err := os.Stat(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("reading database file: %w", err), output.ErrGeneral)
		}
		info.DBSizeBytes = stat.Size()

		w.Success(info, formatConfigHuman(info, false))
		return nil
	},
}

func formatConfigHuman(info configInfo, notFound bool) string {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	row := func(key, val string) string {
		return fmt.Sprintf("%s %s",
			render.StyledText(fmt.Sprintf("%-16s", key+":"), keyStyle),
			render.StyledText(val, valStyle))
	}

	dbPath := info.DBPath
	if notFound {
		dbPath += " (not found)"
	}

	lines := []string{
		row("Data directory", info.DataDir),
		row("Database path", dbPath),
	}
	if !notFound {
		lines = append(lines,
			row("Database size", humanize.Bytes(uint64(info.DBSizeBytes))),
			row("Schema version", fmt.Sprintf("%d", info.SchemaVersion)),
		)
	}
	lines = append(lines,
		row("Config path", info.KVPath),
		row("Export dir", info.ExportDir),
	)

	share := "(not configured)"
	if info.ShareEnabled {
		share = "s3://" + info.ShareBucket
		if info.ShareEndpoint != "" {
			share += " via " + info.ShareEndpoint
		}
	}
	lines = append(lines, row("Share", share))

	return strings.Join(lines, "\n")
}

func init() {
	rootCmd.AddCommand(configCmd)
}
