// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// Scanner lists USB receipt printers. Devices are identified from their
// descriptors only; none is opened.
type Scanner struct {
	logger   *zap.Logger
	printers *PrinterDatabase
	timeout  time.Duration
}

// NewScanner creates a USB scanner
func NewScanner(logger *zap.Logger, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scanner{
		logger:   logger.With(zap.String("scanner", "usb")),
		printers: NewPrinterDatabase(),
		timeout:  timeout,
	}
}

// GetScannerType returns "usb"
func (s *Scanner) GetScannerType() string {
	return "usb"
}

// IsAvailable reports whether libusb enumeration is supported on this OS
func (s *Scanner) IsAvailable() bool {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		return true
	default:
		return false
	}
}

// Scan enumerates the USB bus
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	startTime := time.Now()
	s.logger.Info("Starting USB printer scan")

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	var found []*discovery.DiscoveredPrinter
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil || time.Since(startTime) > s.timeout {
			return false
		}
		if printer := s.FromDescriptor(desc); printer != nil {
			found = append(found, printer)
		}
		return false
	})
	for _, device := range devices {
		device.Close()
	}
	if err != nil && len(found) == 0 {
		return nil, fmt.Errorf("usb enumeration failed: %w", err)
	}

	s.logger.Info("USB scan completed",
		zap.Int("printers_found", len(found)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return found, nil
}

// FromDescriptor converts a device descriptor into a printer candidate.
// It returns nil unless the vendor is known or an interface has the printer class.
func (s *Scanner) FromDescriptor(desc *gousb.DeviceDesc) *discovery.DiscoveredPrinter {
	vendor, modelName, known := s.printers.Identify(desc.Vendor, desc.Product)
	if !known && !hasPrinterInterface(desc) {
		return nil
	}

	name := modelName
	if name == "" {
		name = fmt.Sprintf("USB printer %s:%s", desc.Vendor, desc.Product)
	}

	return &discovery.DiscoveredPrinter{
		Name:           name,
		Model:          modelName,
		Vendor:         vendor,
		ConnectionType: model.ConnectionTypeUSB,
		Link:           LinkConfig(desc.Vendor, desc.Product),
		SuggestedKind:  model.KindEscposTCP,
		Source:         "usb",
		Details: map[string]string{
			"bus":     fmt.Sprintf("%d", desc.Bus),
			"address": fmt.Sprintf("%d", desc.Address),
		},
	}
}

func hasPrinterInterface(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}
