package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
)

var (
	tolerance float64
	output    string
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify [document.json]",
	Short: "Simplify every polygon with Douglas-Peucker",
	Long: `Reduce the vertex count of every polygon. Polygons that would drop below
three points are kept unchanged. The result is written back to the source
unless --output is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimplify,
}

func init() {
	rootCmd.AddCommand(simplifyCmd)

	simplifyCmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 1, "maximum deviation in image pixels")
	simplifyCmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file")
}

// Simplify reduces every polygon in place and returns the number of
// vertices removed.
func Simplify(doc *document.Document, k geometry.Kernel, tol float64) int {
	removed := 0
	for i := range doc.Polygons {
		p := &doc.Polygons[i]
		pts := k.SimplifyPolygon(*p, tol).Points
		if len(pts) < document.MinRingPoints {
			continue
		}
		removed += len(p.Points) - len(pts)
		p.Points = pts
	}
	return removed
}

func runSimplify(cmd *cobra.Command, args []string) error {
	if tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", tolerance)
	}
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
	before := doc.PointCount()
	removed := Simplify(doc, newKernel(ctx, src.logger), tolerance)
	if err := src.save(ctx, doc, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d of %d points\n", removed, before)
	return nil
}
