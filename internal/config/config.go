// =============================================================================
// Pega Tickets - Configuration Module
// =============================================================================
//
// This module loads the application configuration (config.yaml). Every option
// has a default, so the file is optional: running without one generates ticket
// sheets with two tickets per page into ./output.
//
// ARCHITECTURE:
//   The configuration system is designed to be:
//   - Optional: a missing default config file yields the defaults
//   - Validated: values are checked once, on load, before any file is read
//   - Overridable: command-line flags replace individual values afterwards
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/pega-tickets/internal/assets"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/normalizer"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where generated PDF files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputBaseName replaces the input file name as the first part of the
	// output file name ({base}_{timestamp}.pdf).
	// Default: derived from the input file name
	OutputBaseName string `yaml:"output_base_name"`

	// =========================================================================
	// LAYOUT SETTINGS
	// =========================================================================

	// TicketsPerPage is how many ticket columns are drawn side by side.
	// Valid values: 1, 2, 3
	// Default: 2
	TicketsPerPage int `yaml:"tickets_per_page"`

	// DisableCompression writes uncompressed page streams. Useful to inspect
	// the generated PDF in a text editor.
	// Default: false
	DisableCompression bool `yaml:"disable_compression"`

	// Assets are the images stamped on every page.
	Assets AssetsConfig `yaml:"assets"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// SheetName selects the worksheet to read.
	// Default: the first sheet of the workbook
	SheetName string `yaml:"sheet_name"`

	// HeaderRow is the 1-indexed row holding the column headers.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// Aliases adds column header spellings per canonical field, for example:
	//
	//   aliases:
	//     odometer: ["KILOMETRAJE"]
	//     group_key: ["NUMERO"]
	Aliases map[string][]string `yaml:"aliases"`

	// AliasMode is "append" (extra aliases are tried after the built-in ones)
	// or "replace" (extra aliases are the only ones tried for that field).
	// Default: "append"
	AliasMode string `yaml:"alias_mode"`

	// CSVSettings applies to .csv input files.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional path receiving JSON log lines.
	// Default: "" (console only)
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "trace", "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of groups rendered at the same time. The
	// merged output keeps group order whatever the value.
	// Default: 1
	MaxConcurrency int `yaml:"max_concurrency"`
}

// AssetsConfig holds the image paths. Relative paths are resolved against the
// directory of the configuration file. An unset path selects the bundled
// image; "none" leaves the image off.
type AssetsConfig struct {
	// Logo is drawn in the top-left corner, 150pt wide.
	Logo string `yaml:"logo"`

	// Watermark is drawn twice, faintly, down the page.
	Watermark string `yaml:"watermark"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Accepts a single character or one of "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of rows that form the header. Multi-row headers
	// are joined with a space per column.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding of the file: "UTF-8", "WINDOWS-1252" or "ISO-8859-1".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// Alias modes.
const (
	AliasModeAppend  = "append"
	AliasModeReplace = "replace"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "config.yaml"

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct, defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault is LoadMainConfig, except that a missing file yields the
// defaults instead of an error.
func LoadOrDefault(configPath string) (*MainConfig, error) {
	cfg, err := LoadMainConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.TicketsPerPage == 0 {
		config.TicketsPerPage = layout.DefaultPerPage
	}
	if config.HeaderRow == 0 {
		config.HeaderRow = 1
	}
	if config.AliasMode == "" {
		config.AliasMode = AliasModeAppend
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 1
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
}

// resolvePaths makes relative asset paths relative to the config file.
func (c *MainConfig) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || p == assets.None || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Assets.Logo = resolve(c.Assets.Logo)
	c.Assets.Watermark = resolve(c.Assets.Watermark)
}

// Validate checks every option. It is called on load and again by the CLI
// after flags have been applied.
func (c *MainConfig) Validate() error {
	var problems []string

	if c.TicketsPerPage < layout.MinTicketsPage || c.TicketsPerPage > layout.MaxTicketsPage {
		problems = append(problems, fmt.Sprintf("tickets_per_page must be between %d and %d, got %d",
			layout.MinTicketsPage, layout.MaxTicketsPage, c.TicketsPerPage))
	}
	if c.MaxConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.HeaderRow < 1 {
		problems = append(problems, fmt.Sprintf("header_row must be at least 1, got %d", c.HeaderRow))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q is not a valid level", c.LogLevel))
	}
	if c.AliasMode != AliasModeAppend && c.AliasMode != AliasModeReplace {
		problems = append(problems, fmt.Sprintf("alias_mode must be %q or %q, got %q",
			AliasModeAppend, AliasModeReplace, c.AliasMode))
	}
	if _, err := c.FieldAliases(); err != nil {
		problems = append(problems, err.Error())
	}
	if !SupportedEncoding(c.CSVSettings.Encoding) {
		problems = append(problems, fmt.Sprintf("csv_settings.encoding %q is not supported", c.CSVSettings.Encoding))
	}
	if _, err := c.CSVSettings.DelimiterRune(); err != nil {
		problems = append(problems, "csv_settings."+err.Error())
	}
	if c.CSVSettings.HeaderRows < 1 {
		problems = append(problems, "csv_settings.header_rows must be at least 1")
	}
	if c.CSVSettings.DataStartRow <= c.CSVSettings.HeaderRows {
		problems = append(problems, "csv_settings.data_start_row must come after the header rows")
	}

	for _, asset := range []struct{ name, path string }{
		{"assets.logo", c.Assets.Logo},
		{"assets.watermark", c.Assets.Watermark},
	} {
		if asset.path == "" || asset.path == assets.None {
			continue
		}
		if _, err := os.Stat(asset.path); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", asset.name, err))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// FieldAliases returns the built-in aliases with the configured ones merged in.
func (c *MainConfig) FieldAliases() (normalizer.Aliases, error) {
	return normalizer.DefaultAliases().Merge(c.Aliases, c.AliasMode == AliasModeReplace)
}

// DelimiterRune resolves Delimiter to the field separator. Names are accepted
// for tab, pipe and semicolon; anything else must be a single character.
func (s CSVSettings) DelimiterRune() (rune, error) {
	switch s.Delimiter {
	case "":
		return ',', nil
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "pipe", "PIPE":
		return '|', nil
	case "semicolon", "SEMICOLON":
		return ';', nil
	}

	r, size := utf8.DecodeRuneInString(s.Delimiter)
	if r == utf8.RuneError || size != len(s.Delimiter) {
		return 0, fmt.Errorf("delimiter %q must be a single character", s.Delimiter)
	}
	if r == '\r' || r == '\n' || r == '"' {
		return 0, fmt.Errorf("delimiter %q cannot separate fields", s.Delimiter)
	}
	return r, nil
}

// SupportedEncoding reports whether a CSV encoding name is known.
func SupportedEncoding(name string) bool {
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "-")) {
	case "UTF-8", "UTF8", "WINDOWS-1252", "CP1252", "ISO-8859-1", "LATIN1":
		return true
	}
	return false
}
