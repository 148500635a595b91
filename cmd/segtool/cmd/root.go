package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spheroseg/segeditor/internal/config"
)

var (
	// Global flags
	verbose bool
	imageID string
	useAPI  bool
)

var rootCmd = &cobra.Command{
	Use:   "segtool",
	Short: "Inspect and batch-edit polygon segmentations",
	Long: `Work on segmentation documents outside the editor. A document is read
from a JSON file, or with --image from the database or the REST API.

Examples:
  segtool validate seg.json
  segtool stats --image img_01h455vb4pex5vsknk084sn02q
  segtool simplify --tolerance 1.5 -o simplified.json seg.json
  segtool resegment --image img_01h455vb4pex5vsknk084sn02q`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&imageID, "image", "", "load the segmentation of this image instead of a file")
	rootCmd.PersistentFlags().BoolVar(&useAPI, "api", false, "with --image, use the REST API rather than the database")
}

func logger(cfg *config.Config) *slog.Logger {
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
