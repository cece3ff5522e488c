// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Security  SecurityConfig        `mapstructure:"security"`
	Logging   LoggingConfig         `mapstructure:"logging"`
	Monitor   MonitorConfig         `mapstructure:"monitor"`
	Discovery DiscoveryConfig       `mapstructure:"discovery"`
	Proxy     ProxyConfig           `mapstructure:"proxy"`
	App       AppConfig             `mapstructure:"app"`
	Printers  map[string]PrinterSet `mapstructure:"printers"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig only carries CORS origins; authentication is out of scope
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig configures periodic status polling. Zero disables it.
type MonitorConfig struct {
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// DiscoveryConfig configures mDNS printer discovery
type DiscoveryConfig struct {
	Service string        `mapstructure:"service"`
	Domain  string        `mapstructure:"domain"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProxyConfig points at a remote IoT proxy box
type ProxyConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PrinterSet holds the printers configured for one identity (e.g. a POS config id)
type PrinterSet struct {
	Fiscal    *model.PrinterConfig `mapstructure:"fiscal"`
	NonFiscal *model.PrinterConfig `mapstructure:"nonfiscal"`
}

// Get returns the printer of the given class, if configured
func (s PrinterSet) Get(class model.PrinterClass) (model.PrinterConfig, bool) {
	var cfg *model.PrinterConfig
	switch class {
	case model.ClassFiscal:
		cfg = s.Fiscal
	case model.ClassNonFiscal:
		cfg = s.NonFiscal
	}
	if cfg == nil {
		return model.PrinterConfig{}, false
	}
	return *cfg, true
}

// Load loads configuration from the default search paths and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from path, or from the default search paths when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/printer-service")
	}

	// Environment variable support
	v.SetEnvPrefix("PRINTER_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setPrinterDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8069")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Monitor, discovery and proxy defaults
	v.SetDefault("monitor.status_interval", "0s")
	v.SetDefault("discovery.service", "_pdl-datastream._tcp")
	v.SetDefault("discovery.domain", "local.")
	v.SetDefault("discovery.timeout", "5s")
	v.SetDefault("proxy.timeout", "30s")

	// App defaults
	v.SetDefault("app.name", "printer-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
}

// setPrinterDefaults applies per-class defaults to every configured printer.
// Printer keys are dynamic, so this runs after the file has been read.
func setPrinterDefaults(v *viper.Viper) {
	for identity := range v.GetStringMap("printers") {
		for _, class := range []model.PrinterClass{model.ClassFiscal, model.ClassNonFiscal} {
			prefix := fmt.Sprintf("printers.%s.%s", identity, class)
			if !v.IsSet(prefix) {
				continue
			}
			for key, value := range printerDefaults(class) {
				v.SetDefault(prefix+"."+key, value)
			}
		}
	}
}

// printerDefaults returns the defaults of a printer class
func printerDefaults(class model.PrinterClass) map[string]interface{} {
	if class == model.ClassFiscal {
		return map[string]interface{}{
			"kind":            string(model.KindSF20TCP),
			"port":            9100,
			"timeout_seconds": 30,
			"fail_safe":       true,
			"department":      1,
			"operator_id":     1,
			"link.type":       string(model.ConnectionTypeTCP),
		}
	}
	return map[string]interface{}{
		"kind":             string(model.KindEscposTCP),
		"port":             9100,
		"timeout_seconds":  10,
		"width":            32,
		"auto_cut":         false,
		"auto_open_drawer": false,
		"code_page":        "utf8",
		"link.type":        string(model.ConnectionTypeTCP),
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	for identity, set := range config.Printers {
		if set.Fiscal != nil {
			if err := ValidatePrinter(model.ClassFiscal, *set.Fiscal); err != nil {
				return fmt.Errorf("printers.%s: %w", identity, err)
			}
		}
		if set.NonFiscal != nil {
			if err := ValidatePrinter(model.ClassNonFiscal, *set.NonFiscal); err != nil {
				return fmt.Errorf("printers.%s: %w", identity, err)
			}
		}
	}

	return nil
}

// ValidatePrinter checks one printer configuration against its class
func ValidatePrinter(class model.PrinterClass, cfg model.PrinterConfig) error {
	if !cfg.Kind.Valid() {
		return driver.NewConfigError(driver.KindNotConfigured, "kind", fmt.Sprintf("unknown printer kind %q", cfg.Kind))
	}
	if cfg.Kind.Class() != class {
		return driver.NewConfigError(driver.KindInvalidRange, "kind",
			fmt.Sprintf("kind %s does not serve the %s class", cfg.Kind, class))
	}
	if cfg.Link.Type == "" || cfg.Link.Type == model.ConnectionTypeTCP {
		if strings.TrimSpace(cfg.Host) == "" {
			return driver.NewConfigError(driver.KindNotConfigured, "host", "printer host is required")
		}
		if cfg.Port < 1 || cfg.Port > 65535 {
			return driver.NewConfigError(driver.KindInvalidRange, "port", fmt.Sprintf("%d is outside 1..65535", cfg.Port))
		}
	}
	if cfg.TimeoutSeconds < 1 {
		return driver.NewConfigError(driver.KindInvalidRange, "timeout_seconds", "must be at least 1")
	}
	switch cfg.Link.Type {
	case "", model.ConnectionTypeTCP:
	case model.ConnectionTypeSerial:
		if cfg.Link.Serial.Port == "" {
			return driver.NewConfigError(driver.KindNotConfigured, "link.serial.port", "serial port is required")
		}
	case model.ConnectionTypeUSB:
		if cfg.Link.USB.VendorID == "" || cfg.Link.USB.ProductID == "" {
			return driver.NewConfigError(driver.KindNotConfigured, "link.usb", "vendor_id and product_id are required")
		}
	default:
		return driver.NewConfigError(driver.KindInvalidRange, "link.type", fmt.Sprintf("unknown link type %q", cfg.Link.Type))
	}
	if class == model.ClassFiscal {
		if cfg.Department < 1 || cfg.Department > 255 {
			return driver.NewConfigError(driver.KindInvalidRange, "department", fmt.Sprintf("%d is outside 1..255", cfg.Department))
		}
		if cfg.OperatorID < 1 || cfg.OperatorID > 255 {
			return driver.NewConfigError(driver.KindInvalidRange, "operator_id", fmt.Sprintf("%d is outside 1..255", cfg.OperatorID))
		}
		return nil
	}
	if cfg.Width < 16 || cfg.Width > 80 {
		return driver.NewConfigError(driver.KindInvalidRange, "width", fmt.Sprintf("%d is outside 16..80", cfg.Width))
	}
	if !isSupportedCodePage(cfg.CodePage) {
		return driver.NewConfigError(driver.KindInvalidRange, "code_page",
			fmt.Sprintf("%q is not one of %v", cfg.CodePage, supportedCodePages))
	}
	return nil
}

var supportedCodePages = []string{"utf8", "cp437", "cp850", "cp852", "cp858", "cp1252"}

func isSupportedCodePage(name string) bool {
	for _, cp := range supportedCodePages {
		if strings.EqualFold(name, cp) {
			return true
		}
	}
	return false
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
