// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/discovery"
	"printer-service/internal/discovery/serial"
	"printer-service/internal/discovery/tcp"
	"printer-service/internal/discovery/usb"
	"printer-service/internal/model"
	"printer-service/internal/utils"
)

// DiscoveryService finds printers and tells which of them are already configured
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	directory      Directory
	logger         *utils.ServiceLogger
}

// ScanRequest selects the scanners and caps the scan duration
type ScanRequest struct {
	ScanType string        `json:"scan_type"` // all, tcp, serial, usb
	Timeout  time.Duration `json:"timeout"`
}

// DiscoveredPrinter is a scan result. ConfiguredAs holds the identity
// already using the printer, if any.
type DiscoveredPrinter struct {
	*discovery.DiscoveredPrinter
	ConfiguredAs string `json:"configured_as,omitempty"`
}

// NewDiscoveryService creates a discovery service with the mDNS, serial and USB scanners
func NewDiscoveryService(directory Directory, cfg config.DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	manager := discovery.NewScannerManager(logger)
	manager.RegisterScanner(tcp.NewScanner(logger, cfg))
	manager.RegisterScanner(serial.NewScanner(logger))
	manager.RegisterScanner(usb.NewScanner(logger, cfg.Timeout))

	return NewDiscoveryServiceWithScanners(directory, manager, logger)
}

// NewDiscoveryServiceWithScanners creates a discovery service over an existing scanner manager
func NewDiscoveryServiceWithScanners(directory Directory, manager *discovery.ScannerManager, logger *zap.Logger) *DiscoveryService {
	ds := &DiscoveryService{
		scannerManager: manager,
		directory:      directory,
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}
	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", manager.GetAvailableScanners()),
	)
	return ds
}

// AvailableScanners lists the scanner types usable on this host
func (ds *DiscoveryService) AvailableScanners() []string {
	return ds.scannerManager.GetAvailableScanners()
}

// ScanPrinters runs the requested scanners
func (ds *DiscoveryService) ScanPrinters(ctx context.Context, req ScanRequest) ([]*DiscoveredPrinter, error) {
	if req.ScanType == "" {
		req.ScanType = "all"
	}
	ds.logger.Info("Starting printer scan",
		zap.String("type", req.ScanType),
		zap.Duration("timeout", req.Timeout),
	)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var (
		printers []*discovery.DiscoveredPrinter
		err      error
	)
	switch req.ScanType {
	case "all":
		printers, err = ds.scannerManager.ScanAll(ctx)
	case "tcp", "serial", "usb":
		printers, err = ds.scannerManager.ScanByType(ctx, req.ScanType)
	default:
		return nil, fmt.Errorf("unsupported scan type: %s", req.ScanType)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	configured := ds.configuredEndpoints()
	result := make([]*DiscoveredPrinter, len(printers))
	for i, printer := range printers {
		result[i] = &DiscoveredPrinter{
			DiscoveredPrinter: printer,
			ConfiguredAs:      configured[printer.Key()],
		}
	}

	ds.logger.Info("Printer scan completed",
		zap.Int("printers_found", len(result)),
		zap.String("scan_type", req.ScanType),
	)
	return result, nil
}

// configuredEndpoints maps endpoint keys of configured printers to their identity
func (ds *DiscoveryService) configuredEndpoints() map[string]string {
	endpoints := make(map[string]string)
	if ds.directory == nil {
		return endpoints
	}
	for _, entry := range ds.directory.Entries() {
		candidate := discovery.DiscoveredPrinter{
			ConnectionType: entry.Config.Link.Type,
			Host:           entry.Config.Host,
			Port:           entry.Config.Port,
			Link:           entry.Config.Link,
		}
		if candidate.ConnectionType == "" {
			candidate.ConnectionType = model.ConnectionTypeTCP
		}
		endpoints[candidate.Key()] = entry.Identity
	}
	return endpoints
}
