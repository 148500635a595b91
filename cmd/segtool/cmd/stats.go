package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [document.json]",
	Short: "Print area and perimeter per polygon",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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
	k := newKernel(ctx, src.logger)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tPOINTS\tAREA\tPERIMETER")
	var total float64
	for _, p := range doc.Polygons {
		area := k.PolygonArea(p)
		total += area
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\n", p.ID, p.Kind, len(p.Points), area, k.PolygonPerimeter(p))
	}
	fmt.Fprintf(tw, "total\t\t%d\t%.1f\t\n", doc.PointCount(), total)
	return tw.Flush()
}
