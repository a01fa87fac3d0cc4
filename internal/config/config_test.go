package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pega-tickets/internal/normalizer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 2, cfg.TicketsPerPage)
	assert.Equal(t, 1, cfg.HeaderRow)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, AliasModeAppend, cfg.AliasMode)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
	assert.Equal(t, "UTF-8", cfg.CSVSettings.Encoding)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMainConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("x"), 0o644))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: /tmp/out
output_base_name: flota
tickets_per_page: 3
max_concurrency: 4
log_level: debug
assets:
  logo: logo.png
aliases:
  odometer: ["KILOMETRAJE"]
csv_settings:
  delimiter: ";"
  header_rows: 2
  encoding: WINDOWS-1252
`), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "flota", cfg.OutputBaseName)
	assert.Equal(t, 3, cfg.TicketsPerPage)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, filepath.Join(dir, "logo.png"), cfg.Assets.Logo)
	assert.Equal(t, 3, cfg.CSVSettings.DataStartRow)

	aliases, err := cfg.FieldAliases()
	require.NoError(t, err)
	assert.Equal(t, "KILOMETRAJE", aliases[normalizer.FieldOdometer][len(aliases[normalizer.FieldOdometer])-1])
}

func TestLoadMainConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"tickets per page", "tickets_per_page: 4", "tickets_per_page"},
		{"concurrency", "max_concurrency: -1", "max_concurrency"},
		{"log level", "log_level: loud", "log_level"},
		{"alias mode", "alias_mode: merge", "alias_mode"},
		{"unknown alias field", "aliases:\n  colour: [X]", "colour"},
		{"encoding", "csv_settings:\n  encoding: EBCDIC", "encoding"},
		{"long delimiter", "csv_settings:\n  delimiter: ab", "single character"},
		{"quote delimiter", "csv_settings:\n  delimiter: '\"'", "cannot separate fields"},
		{"missing asset", "assets:\n  watermark: nope.png", "assets.watermark"},
		{"bad yaml", "tickets_per_page: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	for delimiter, want := range map[string]rune{
		"":          ',',
		",":         ',',
		"tab":       '\t',
		"\\t":       '\t',
		"pipe":      '|',
		"semicolon": ';',
		"¦":         '¦',
	} {
		got, err := CSVSettings{Delimiter: delimiter}.DelimiterRune()
		require.NoError(t, err, delimiter)
		assert.Equal(t, want, got, delimiter)
	}

	_, err := CSVSettings{Delimiter: "¦¦"}.DelimiterRune()
	assert.Error(t, err)
}

func TestAssetsNone(t *testing.T) {
	cfg, err := LoadMainConfig(writeConfig(t, "assets:\n  logo: none\n  watermark: none"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Assets.Logo)
	assert.Equal(t, "none", cfg.Assets.Watermark)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(writeConfig(t, "tickets_per_page: 0\nmax_concurrency: 0\nheader_row: -2"))
	assert.Error(t, err)
}

func TestSupportedEncoding(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF8", "windows-1252", "cp1252", "ISO_8859_1", "latin1"} {
		assert.True(t, SupportedEncoding(name), name)
	}
	assert.False(t, SupportedEncoding("UTF-16"))
}
