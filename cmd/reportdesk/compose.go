package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/compose"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/server"
	"github.com/verustcode/reportdesk/pkg/logger"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose a report interactively in the terminal",
	Long: `Walk through the report wizard in the terminal. Drafts are saved to the
same database the server uses, so a report started here can be finished
in the browser and the other way round.

Resume an existing draft with:
  reportdesk compose --form <id>`,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().String("form", "", "resume the draft with this form id")
	composeCmd.Flags().String("out", "", "directory for exported PDFs (overrides export.output_dir)")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	// keep the terminal for the wizard; warnings and errors still show
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "text"
	mustInitLogger(cfg.Logging)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Error("Failed to save draft on exit", zap.Error(err))
		}
	}()

	form, err := openForm(ctx, app, cmd)
	if err != nil {
		return err
	}
	fmt.Printf("Composing form %s\n\n", form.FormID())

	outDir, _ := cmd.Flags().GetString("out")
	exporter := func(ctx context.Context, doc *model.Document) (string, error) {
		return app.ExportToDir(ctx, form.FormID(), doc, outDir, progressPrinter())
	}
	return compose.New(form, compose.NewHuhPrompter(), exporter).Run(ctx)
}
