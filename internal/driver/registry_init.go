// internal/driver/registry_init.go
package driver

import (
	"go.uber.org/zap"

	"printer-service/internal/driver/epos"
	"printer-service/internal/driver/escpos"
	"printer-service/internal/driver/sf20"
	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

var (
	_ driver.FiscalDriver   = (*sf20.Adapter)(nil)
	_ driver.DocumentDriver = (*escpos.Adapter)(nil)
	_ driver.PrinterDriver  = (*epos.Client)(nil)
)

// RegisterDefaultDrivers registers all built-in printer drivers
func RegisterDefaultDrivers(registry *Registry, logger *zap.Logger) {
	// Fiscal
	registry.Register(model.KindSF20TCP, newSF20Driver)

	// Non-fiscal
	registry.Register(model.KindEscposTCP, newEscposDriver)
	registry.Register(model.KindEpsonEPOS, newEPOSDriver)

	logger.Info("Printer drivers registered",
		zap.Int("kinds", len(registry.ListKinds())),
	)
}

func newSF20Driver(identity string, cfg model.PrinterConfig, logger *zap.Logger) (driver.PrinterDriver, error) {
	return sf20.NewAdapter(identity, cfg, logger)
}

func newEscposDriver(identity string, cfg model.PrinterConfig, logger *zap.Logger) (driver.PrinterDriver, error) {
	return escpos.NewAdapter(identity, cfg, logger)
}

func newEPOSDriver(identity string, cfg model.PrinterConfig, logger *zap.Logger) (driver.PrinterDriver, error) {
	return epos.NewClient(identity, cfg, logger)
}
