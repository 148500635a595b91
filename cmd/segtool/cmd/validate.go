package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [document.json]",
	Short: "Report degenerate, duplicate and self-intersecting polygons",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// Issue is one problem found in a document.
type Issue struct {
	PolygonID string
	Problem   string
}

func newKernel(ctx context.Context, logger *slog.Logger) geometry.Kernel {
	sw := geometry.NewSwitch(logger)
	sw.Load(ctx, geometry.LoadNative)
	<-sw.Ready()
	return sw
}

// Inspect lists every problem in doc.
func Inspect(doc *document.Document, k geometry.Kernel) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(doc.Polygons))
	for _, p := range doc.Polygons {
		if seen[p.ID] {
			issues = append(issues, Issue{p.ID, "duplicate id"})
		}
		seen[p.ID] = true
		if len(p.Points) < document.MinRingPoints {
			issues = append(issues, Issue{p.ID, fmt.Sprintf("only %d points", len(p.Points))})
			continue
		}
		if pts := k.DetectSelfIntersections(p); len(pts) > 0 {
			issues = append(issues, Issue{p.ID, fmt.Sprintf("%d self-intersections, first at (%.1f, %.1f)", len(pts), pts[0].X, pts[0].Y)})
		}
		if k.PolygonArea(p) == 0 {
			issues = append(issues, Issue{p.ID, "zero area"})
		}
	}
	return issues
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := openSource(ctx, args)
	if err != nil {
		return err
	}
	defer src.close()

	doc, err := src.load(ctx)
	if err != nil {
		return err
	}
	issues := Inspect(doc, newKernel(ctx, src.logger))
	out := cmd.OutOrStdout()
	for _, is := range issues {
		fmt.Fprintf(out, "%s: %s\n", is.PolygonID, is.Problem)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d problems in %d polygons", len(issues), len(doc.Polygons))
	}
	fmt.Fprintf(out, "ok: %d polygons, %d points\n", len(doc.Polygons), doc.PointCount())
	return nil
}
