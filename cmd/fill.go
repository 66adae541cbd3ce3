package cmd

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/bill-to-quote/internal/logger"
	"github.com/insightdelivered/bill-to-quote/internal/models"
	"github.com/insightdelivered/bill-to-quote/internal/pipeline"
	"github.com/insightdelivered/bill-to-quote/internal/review"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

var fillCmd = &cobra.Command{
	Use:   "fill [bill]",
	Short: "Fill the quote template from a bill or from edited lines",
	Long: `Write header fields and usage lines into the quote template.

With a bill, its extracted fields are written. --lines and --headers take
edited JSON (as printed by "extract") and replace the extracted values.
Without a bill both come from those files alone.`,
	Example: `  # Straight from the bill
  bill-to-quote fill bill.pdf

  # Reviewed lines, custom template
  bill-to-quote fill bill.pdf --lines lines.json --template quote.xlsx -o acme.xlsx

  # No bill, edited data only
  bill-to-quote fill --headers headers.json --lines lines.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringP("template", "t", "", "Quote template (default: template.path from config)")
	fillCmd.Flags().String("lines", "", "Edited usage lines as a JSON array")
	fillCmd.Flags().String("headers", "", "Edited header fields as a JSON object")
	fillCmd.Flags().StringP("output", "o", writer.OutputFileName, "Output workbook path")
}

func runFill(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("fill")

	templatePath, _ := cmd.Flags().GetString("template")
	linesPath, _ := cmd.Flags().GetString("lines")
	headersPath, _ := cmd.Flags().GetString("headers")
	outputPath, _ := cmd.Flags().GetString("output")

	if len(args) == 0 && linesPath == "" && headersPath == "" {
		return eris.New("nothing to fill: give a bill, --lines or --headers")
	}
	if templatePath == "" {
		templatePath = cfg.Template.Path
	}

	p, closeOCR, err := newPipeline(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer closeOCR()

	headers := models.NewHeaderFields()
	lines := []models.UsageLine{}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "failed to read %q", args[0])
		}
		bill, err := p.Extract(cmd.Context(), filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		headers, lines = bill.Headers, bill.Lines
	}

	if err := applyEdits(&headers, &lines, headersPath, linesPath); err != nil {
		return err
	}

	template, err := pipeline.LoadTemplate(nil, templatePath)
	if err != nil {
		return err
	}
	out, err := p.Fill(template, headers, lines)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return eris.Wrapf(err, "failed to write %q", outputPath)
	}

	log.Info().Str("output", outputPath).Int("lines", len(lines)).Msg("Quote written")
	return nil
}

// applyEdits replaces headers and lines with the contents of the given edit
// files. An empty path leaves the value alone.
func applyEdits(headers *models.HeaderFields, lines *[]models.UsageLine, headersPath, linesPath string) error {
	if headersPath != "" {
		data, err := os.ReadFile(headersPath)
		if err != nil {
			return eris.Wrapf(err, "failed to read %q", headersPath)
		}
		h, err := review.DecodeHeaders(data)
		if err != nil {
			return eris.Wrapf(err, "%s", headersPath)
		}
		*headers = h
	}
	if linesPath != "" {
		data, err := os.ReadFile(linesPath)
		if err != nil {
			return eris.Wrapf(err, "failed to read %q", linesPath)
		}
		l, err := review.DecodeLines(data)
		if err != nil {
			return eris.Wrapf(err, "%s", linesPath)
		}
		*lines = l
	}
	return nil
}
