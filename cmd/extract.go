package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/bill-to-quote/internal/logger"
	"github.com/insightdelivered/bill-to-quote/internal/models"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatCSV  = "csv"
)

var extractCmd = &cobra.Command{
	Use:   "extract [bill]",
	Short: "Extract header fields and usage lines from a bill",
	Long: `Read a bill and print what was found: the header fields and the
tariff/usage lines. Edit the output and pass it back to "fill" with
--lines and --headers.`,
	Example: `  # Print as JSON
  bill-to-quote extract bill.pdf

  # Usage lines as CSV with header fields as comment rows
  bill-to-quote extract scan.jpg --format csv -o usage.csv

  # Show the text the parser saw
  bill-to-quote extract bill.pdf --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("format", "f", formatJSON, "Output format: json, yaml or csv")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("raw", false, "Print the extracted text instead of parsed fields")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")

	if !raw {
		switch format {
		case formatJSON, formatYAML, formatCSV:
		default:
			return eris.Errorf("unknown format %q: use json, yaml or csv", format)
		}
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "failed to read %q", path)
	}

	p, closeOCR, err := newPipeline(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer closeOCR()

	bill, err := p.Extract(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		return err
	}
	for _, w := range bill.Warnings {
		log.Warn().Str("file", path).Msg(w)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "failed to create output file %q", outputPath)
		}
		defer f.Close()
		out = f
	}

	if raw {
		_, err := fmt.Fprintln(out, bill.Text)
		return eris.Wrap(err, "failed to write text")
	}
	return writeBill(out, bill, format)
}

// writeBill renders a parsed bill in the requested format.
func writeBill(out io.Writer, bill *models.Bill, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(bill), "failed to encode JSON")
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(bill); err != nil {
			return eris.Wrap(err, "failed to encode YAML")
		}
		return eris.Wrap(enc.Close(), "failed to encode YAML")
	case formatCSV:
		w := &writer.CSVWriter{IncludeHeader: true}
		return w.Write(out, bill)
	}
	return eris.Errorf("unknown format %q", format)
}
