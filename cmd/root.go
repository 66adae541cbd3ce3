// Package cmd holds the bill-to-quote command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/bill-to-quote/internal/config"
	"github.com/insightdelivered/bill-to-quote/internal/extractor"
	"github.com/insightdelivered/bill-to-quote/internal/logger"
	"github.com/insightdelivered/bill-to-quote/internal/pipeline"
)

var version = "1.0.0"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bill-to-quote",
	Short: "Turn an electricity bill into a filled quote workbook",
	Long: `bill-to-quote reads an electricity bill (PDF or image), pulls out the account
details and tariff/usage lines, and writes them into the quote template.

Digital PDFs are read directly; scanned PDFs and photos go through OCR.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Setup(logger.LogConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			TimeFormat: cfg.Log.TimeFormat,
			Output:     cfg.Log.Output,
		})
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// extractorConfig maps loaded configuration onto the extractor's options.
func extractorConfig(c *config.Config) extractor.Config {
	return extractor.Config{
		MinTextChars:    c.Extract.MinTextChars,
		Engine:          c.OCR.Engine,
		Language:        c.OCR.Language,
		PSM:             c.OCR.PSM,
		DPI:             c.OCR.DPI,
		Pdftoppm:        c.OCR.PdftoppmPath,
		Pdftotext:       c.OCR.PdftotextPath,
		CredentialsFile: c.OCR.CredentialsFile,
	}
}

// newPipeline builds the extraction pipeline. The returned close func
// releases the OCR engine.
func newPipeline(ctx context.Context, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	base := logger.Get()
	ecfg := extractorConfig(cfg)
	ocr, err := extractor.NewRecognizer(ctx, ecfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := ocr.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close OCR engine")
		}
	}
	ex := extractor.New(ecfg, ocr, base)
	return pipeline.New(ex, cfg.Template.Sheet, base), closeFn, nil
}
