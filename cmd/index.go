package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"sigidx/internal/cparse"
	"sigidx/internal/index"
)

var flagWorkers int

var indexCmd = &cobra.Command{
	Use:   "index <root>",
	Short: "Index C/C++ sources and headers under a project root",
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Indexing files"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)

		parser := cparse.NewParser()
		summary, err := index.Run(ctx, index.Config{
			Root:    root,
			DBPath:  dbPath,
			Workers: flagWorkers,
			Parse:   parser.ParseFile,
			OnProgress: func(p index.Progress) {
				bar.ChangeMax(p.FilesTotal)
				_ = bar.Set(p.FilesDone)
			},
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		printSummary(summary)
		return nil
	},
}

func printSummary(s *index.Summary) {
	fmt.Printf("Indexed root: %s\n", s.Root)
	fmt.Printf("DB path: %s\n", s.DBPath)
	fmt.Printf("Workers: %d\n", s.Workers)
	fmt.Printf("Files total: %d\n", s.FilesTotal)
	fmt.Printf("Files indexed: %d\n", s.FilesIndexed)
	fmt.Printf("Files skipped: %d\n", s.FilesSkipped)
	fmt.Printf("Files failed: %d\n", s.FilesFailed)
	fmt.Printf("Functions indexed: %d\n", s.FunctionsTotal)
	if s.Canceled {
		fmt.Println("Canceled: yes")
	}
	fmt.Printf("Duration: %s\n", s.Duration.Round(time.Millisecond))
}

func init() {
	indexCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel parser workers")
	rootCmd.AddCommand(indexCmd)
}
