package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BILLQUOTE_OCR_ENGINE.
const EnvPrefix = "BILLQUOTE"

// DefaultTemplatePath is the quote template looked up when none is uploaded.
const DefaultTemplatePath = "Quote - (Site Address) - (Mth Year).xlsx"

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Template TemplateConfig `yaml:"template" mapstructure:"template"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	BodyLimitMB int    `yaml:"body_limit_mb" mapstructure:"body_limit_mb"`
	StaticDir   string `yaml:"static_dir" mapstructure:"static_dir"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	Output     string `yaml:"output" mapstructure:"output"`
	TimeFormat string `yaml:"time_format" mapstructure:"time_format"`
}

// TemplateConfig locates the quote workbook.
type TemplateConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// ExtractConfig tunes the digital-text acceptance gate.
type ExtractConfig struct {
	MinTextChars int `yaml:"min_text_chars" mapstructure:"min_text_chars"`
}

// OCRConfig configures the OCR fallback.
type OCRConfig struct {
	Engine          string `yaml:"engine" mapstructure:"engine"`
	Language        string `yaml:"language" mapstructure:"language"`
	PSM             int    `yaml:"psm" mapstructure:"psm"`
	DPI             int    `yaml:"dpi" mapstructure:"dpi"`
	PdftoppmPath    string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	PdftotextPath   string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// Load reads configuration from an optional YAML file and BILLQUOTE_*
// environment variables. An empty path looks for config.yaml in the working
// directory; a missing file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.body_limit_mb", 32)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.time_format", time.RFC3339)
	v.SetDefault("template.path", DefaultTemplatePath)
	v.SetDefault("template.sheet", "")
	v.SetDefault("extract.min_text_chars", 100)
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.credentials_file", "")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case "tesseract", "vision", "none":
	default:
		return eris.Errorf("config: ocr.engine must be tesseract, vision or none, got %q", c.OCR.Engine)
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return eris.Errorf("config: ocr.psm must be between 0 and 13, got %d", c.OCR.PSM)
	}
	if c.OCR.DPI <= 0 {
		return eris.Errorf("config: ocr.dpi must be positive, got %d", c.OCR.DPI)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return eris.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Server.BodyLimitMB <= 0 {
		return eris.Errorf("config: server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}
	if c.Extract.MinTextChars < 0 {
		return eris.Errorf("config: extract.min_text_chars must not be negative, got %d", c.Extract.MinTextChars)
	}
	return nil
}
