package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagDB string

var rootCmd = &cobra.Command{
	Use:   "sigidx",
	Short: "Incremental catalog and fuzzy search for C/C++ function signatures",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default <root>/.sigidx/index.db)")
}

// resolveDBPath picks the database location for a project root and
// makes sure its directory exists.
func resolveDBPath(root string) (string, error) {
	dbPath := flagDB
	if dbPath == "" {
		dbPath = filepath.Join(root, ".sigidx", "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", err
	}
	return dbPath, nil
}
