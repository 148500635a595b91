package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spheroseg/segeditor/internal/api"
	"github.com/spheroseg/segeditor/internal/config"
	"github.com/spheroseg/segeditor/internal/editor"
	"github.com/spheroseg/segeditor/internal/notice"
)

var resegmentCmd = &cobra.Command{
	Use:   "resegment --image ID",
	Short: "Ask the backend to segment an image again and wait for the result",
	Long: `Trigger resegmentation through the REST API and poll until the job
finishes. When SEGEDITOR_STATUS_WS_URL is set, status pushes on that socket
end each poll wait early.`,
	Args: cobra.NoArgs,
	RunE: runResegment,
}

func init() {
	rootCmd.AddCommand(resegmentCmd)
}

func runResegment(cmd *cobra.Command, _ []string) error {
	if imageID == "" {
		return errors.New("resegment needs --image")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger(cfg)
	tokens := api.StaticToken(cfg.APIToken)
	c := api.NewClient(cfg.APIBaseURL,
		api.WithTokenSource(tokens),
		api.WithLogger(log),
		api.WithResponseLimit(cfg.RequestLimit))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps := editor.Deps{
		Documents:   c,
		Images:      c,
		Resegmenter: c,
		Notifier:    notice.LogNotifier{Logger: log},
		Kernel:      newKernel(ctx, log),
		Logger:      log,
	}
	if cfg.StatusWSURL != "" {
		w := api.NewStatusWatcher(cfg.StatusWSURL, tokens, log)
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("status socket closed", "error", err)
			}
		}()
		deps.Wake = w.Updates()
	}

	ed := editor.New(editor.OptionsFromConfig(cfg), deps)
	defer ed.Close()

	if err := ed.Load(ctx, imageID, 0, 0); err != nil {
		return err
	}
	before := ed.Document().PointCount()
	if err := ed.Resegment(ctx); err != nil {
		return err
	}
	doc := ed.Document()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d polygons, %d points (was %d)\n",
		imageID, len(doc.Polygons), doc.PointCount(), before)
	return nil
}
