package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/server"
	"github.com/verustcode/reportdesk/internal/wizard"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
	"github.com/verustcode/reportdesk/pkg/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a finalized report as PDF",
	Long: `Export a report without starting the server. The source is either a
finalized draft:
  reportdesk export --form <id>

or a document JSON file, as returned by POST /api/v1/forms/:form/finalize:
  reportdesk export --input report.json --out ./reports`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("form", "", "finalized draft to export")
	exportCmd.Flags().String("input", "", "document JSON file to export")
	exportCmd.Flags().String("out", "", "output directory (overrides export.output_dir)")
	exportCmd.MarkFlagsMutuallyExclusive("form", "input")
	exportCmd.MarkFlagsOneRequired("form", "input")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	mustInitLogger(cfg.Logging)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	formID, doc, err := exportSource(ctx, app, cmd)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	path, err := app.ExportToDir(ctx, formID, doc, outDir, progressPrinter())
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("✓ Saved %s\n", path)
	return nil
}

// exportSource returns the document named by --form or --input.
func exportSource(ctx context.Context, app *server.App, cmd *cobra.Command) (string, *model.Document, error) {
	if input, _ := cmd.Flags().GetString("input"); input != "" {
		doc, err := readDocument(input)
		if err != nil {
			return "", nil, err
		}
		return idgen.NewFormID(), doc, nil
	}

	form, err := openForm(ctx, app, cmd)
	if err != nil {
		return "", nil, err
	}
	if step := form.Step(); step != model.StepFinalized {
		return "", nil, errors.New(errors.ErrCodeInvalidStep,
			fmt.Sprintf("form %s is not finalized (current step %s)", form.FormID(), step))
	}
	return form.FormID(), form.Document(), nil
}

// readDocument decodes and checks a document JSON file.
func readDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, "invalid document JSON", err)
	}
	if missing := model.MissingHeaderFields(doc.Header); len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeHeaderIncomplete,
			"header is incomplete: "+strings.Join(missing, ", "))
	}
	if err := model.ValidateDocument(&doc); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	doc.TableOfContents = model.DeriveTableOfContents(doc.Sections)
	return &doc, nil
}

// openForm restores the draft named by --form, or creates a new one when
// the flag is empty.
func openForm(ctx context.Context, app *server.App, cmd *cobra.Command) (*wizard.Assembler, error) {
	id, _ := cmd.Flags().GetString("form")
	if id == "" {
		return app.Forms.Create(ctx)
	}
	return app.Forms.Get(ctx, id)
}

// progressPrinter reports captured pages on stderr.
func progressPrinter() export.ExportOption {
	return export.WithProgress(func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rCapturing page %d/%d", done, total)
	})
}
