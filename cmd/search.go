package cmd

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"sigidx/internal/cparse"
	"sigidx/internal/index"
	"sigidx/internal/model"
	"sigidx/internal/query"
	"sigidx/internal/store"
)

var flagTop int

var searchCmd = &cobra.Command{
	Use:   "search <root> <query>",
	Short: "Search indexed function signatures",
	Long: `Search indexed function signatures.

The query is either a signature or a name and signature:

    sigidx search . "int (int, int)"
    sigidx search . "add :: int (int, int)"

The index is refreshed before querying.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		dbPath, err := resolveDBPath(root)
		if err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}

		// Keep the catalog fresh before querying.
		parser := cparse.NewParser()
		if _, err := index.Run(cmd.Context(), index.Config{
			Root:    root,
			DBPath:  dbPath,
			Workers: flagWorkers,
			Parse:   parser.ParseFile,
		}); err != nil {
			return err
		}

		q, err := query.Parse(args[1], cparse.Normalize)
		if err != nil {
			return fmt.Errorf("query parsing failed: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		limit := max(200, flagTop*20)
		candidates, err := s.FetchCandidates(q, limit)
		if err != nil {
			return err
		}

		for _, c := range query.Rank(candidates, q, flagTop) {
			fmt.Println(formatCandidate(c))
		}
		return nil
	},
}

func formatCandidate(c model.Candidate) string {
	return fmt.Sprintf("%s:%d:%d: %s :: %s(%s)",
		c.Path, c.Line, c.Column, c.Name, c.ReturnType, formatParams(c.Params))
}

func formatParams(params []model.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Name != "" {
			parts = append(parts, p.Type+" "+p.Name)
		} else {
			parts = append(parts, p.Type)
		}
	}
	return strings.Join(parts, ", ")
}

func init() {
	searchCmd.Flags().IntVar(&flagTop, "top", 20, "how many results to print")
	searchCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "workers used for refresh indexing")
	rootCmd.AddCommand(searchCmd)
}
