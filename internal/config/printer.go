// internal/config/printer.go
package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/viper"

	"printer-service/internal/model"
)

// PrinterFromMap builds a validated printer configuration from a flat map such as
// {host, port, timeoutSeconds, failSafe, width, autoCut, autoOpenDrawer}.
// Both camelCase and snake_case keys are accepted; missing keys take the class defaults.
func PrinterFromMap(class model.PrinterClass, values map[string]interface{}) (model.PrinterConfig, error) {
	v := viper.New()
	for key, value := range printerDefaults(class) {
		v.SetDefault(key, value)
	}

	normalized := make(map[string]interface{}, len(values))
	for key, value := range values {
		normalized[snakeCase(key)] = value
	}
	if err := v.MergeConfigMap(normalized); err != nil {
		return model.PrinterConfig{}, fmt.Errorf("failed to merge printer config: %w", err)
	}

	var cfg model.PrinterConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return model.PrinterConfig{}, fmt.Errorf("unable to decode printer config: %w", err)
	}

	if err := ValidatePrinter(class, cfg); err != nil {
		return model.PrinterConfig{}, err
	}
	return cfg, nil
}

func snakeCase(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
