package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete photo records no issue lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		removed, err := getStore(cmd).SweepOrphanPhotos(cmd.Context())
		if err != nil {
			return storeErr(err, "sweeping photos")
		}
		w.Success(struct {
			Removed int `json:"removed"`
		}{removed}, fmt.Sprintf("Removed %d orphan photo(s)", removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
