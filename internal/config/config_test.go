package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

const sampleConfig = `
server:
  port: "9000"
logging:
  level: debug
monitor:
  status_interval: 15s
printers:
  "1":
    fiscal:
      host: 192.168.1.50
    nonfiscal:
      host: 192.168.1.60
      width: 42
      auto_cut: true
  "2":
    nonfiscal:
      kind: epson_epos
      host: 192.168.1.70
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromAppliesPrinterDefaults(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 15*time.Second, cfg.Monitor.StatusInterval)
	assert.Equal(t, "_pdl-datastream._tcp", cfg.Discovery.Service)

	set, ok := cfg.Printers["1"]
	require.True(t, ok)

	fiscal, ok := set.Get(model.ClassFiscal)
	require.True(t, ok)
	assert.Equal(t, model.KindSF20TCP, fiscal.Kind)
	assert.Equal(t, "192.168.1.50", fiscal.Host)
	assert.Equal(t, 9100, fiscal.Port)
	assert.Equal(t, 30, fiscal.TimeoutSeconds)
	assert.True(t, fiscal.FailSafe)
	assert.Equal(t, 1, fiscal.Department)
	assert.Equal(t, 1, fiscal.OperatorID)

	nonfiscal, ok := set.Get(model.ClassNonFiscal)
	require.True(t, ok)
	assert.Equal(t, model.KindEscposTCP, nonfiscal.Kind)
	assert.Equal(t, 42, nonfiscal.Width)
	assert.Equal(t, 10, nonfiscal.TimeoutSeconds)
	assert.True(t, nonfiscal.AutoCut)
	assert.False(t, nonfiscal.AutoOpenDrawer)
	assert.Equal(t, "utf8", nonfiscal.CodePage)

	_, ok = cfg.Printers["2"].Get(model.ClassFiscal)
	assert.False(t, ok)
	epos, ok := cfg.Printers["2"].Get(model.ClassNonFiscal)
	require.True(t, ok)
	assert.Equal(t, model.KindEpsonEPOS, epos.Kind)
}

func TestLoadFromRejectsInvalidPrinter(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, `
printers:
  "1":
    fiscal:
      host: 10.0.0.1
      port: 70000
`))
	require.Error(t, err)
	assert.True(t, driver.IsKind(err, driver.KindInvalidRange))
}

func TestLoadFromMissingExplicitFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnvironmentOverride(t *testing.T) {
	t.Setenv("PRINTER_SERVICE_SERVER_PORT", "7070")

	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestPrinterFromMapDefaults(t *testing.T) {
	cfg, err := PrinterFromMap(model.ClassFiscal, map[string]interface{}{"host": "10.0.0.5"})
	require.NoError(t, err)

	assert.Equal(t, model.KindSF20TCP, cfg.Kind)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.True(t, cfg.FailSafe)
	assert.Equal(t, model.ConnectionParams{Host: "10.0.0.5", Port: 9100, TimeoutSeconds: 30}, cfg.Params())
}

func TestPrinterFromMapCamelCaseKeys(t *testing.T) {
	cfg, err := PrinterFromMap(model.ClassNonFiscal, map[string]interface{}{
		"host":           "10.0.0.6",
		"port":           9101,
		"timeoutSeconds": 5,
		"autoCut":        true,
		"autoOpenDrawer": true,
		"width":          48,
	})
	require.NoError(t, err)

	assert.Equal(t, 9101, cfg.Port)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
	assert.True(t, cfg.AutoCut)
	assert.True(t, cfg.AutoOpenDrawer)
	assert.Equal(t, 48, cfg.Width)
}

func TestPrinterFromMapFailSafeCanBeDisabled(t *testing.T) {
	cfg, err := PrinterFromMap(model.ClassFiscal, map[string]interface{}{
		"host":     "10.0.0.5",
		"failSafe": false,
	})
	require.NoError(t, err)
	assert.False(t, cfg.FailSafe)
}

func TestPrinterFromMapValidation(t *testing.T) {
	tests := []struct {
		name   string
		class  model.PrinterClass
		values map[string]interface{}
		kind   driver.ErrorKind
	}{
		{"missing host", model.ClassFiscal, map[string]interface{}{}, driver.KindNotConfigured},
		{"port zero", model.ClassFiscal, map[string]interface{}{"host": "h", "port": 0}, driver.KindInvalidRange},
		{"port too large", model.ClassNonFiscal, map[string]interface{}{"host": "h", "port": 65536}, driver.KindInvalidRange},
		{"width too small", model.ClassNonFiscal, map[string]interface{}{"host": "h", "width": 8}, driver.KindInvalidRange},
		{"zero timeout", model.ClassNonFiscal, map[string]interface{}{"host": "h", "timeout_seconds": 0}, driver.KindInvalidRange},
		{"unknown kind", model.ClassFiscal, map[string]interface{}{"host": "h", "kind": "dot_matrix"}, driver.KindNotConfigured},
		{"kind of other class", model.ClassFiscal, map[string]interface{}{"host": "h", "kind": "escpos_tcp"}, driver.KindInvalidRange},
		{"unknown code page", model.ClassNonFiscal, map[string]interface{}{"host": "h", "code_page": "ebcdic"}, driver.KindInvalidRange},
		{"serial without port", model.ClassFiscal, map[string]interface{}{"link": map[string]interface{}{"type": "serial"}}, driver.KindNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrinterFromMap(tt.class, tt.values)
			require.Error(t, err)

			var cfgErr *driver.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.kind, cfgErr.Kind)
			assert.False(t, driver.Retryable(err))
		})
	}
}
