package cmd

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"sigidx/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui <root>",
	Short: "Interactive signature search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		dbPath, err := resolveDBPath(root)
		if err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}

		return tui.Run(tui.Config{
			Root:    root,
			DBPath:  dbPath,
			Workers: flagWorkers,
		})
	},
}

func init() {
	tuiCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel parser workers")
	rootCmd.AddCommand(tuiCmd)
}
