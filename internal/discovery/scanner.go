// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// PrinterScanner finds printers reachable over one kind of link
type PrinterScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredPrinter, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredPrinter is a printer candidate. SuggestedKind and Link can be
// copied into a printers config entry as-is.
type DiscoveredPrinter struct {
	Name           string               `json:"name"`
	Model          string               `json:"model,omitempty"`
	Vendor         string               `json:"vendor,omitempty"`
	ConnectionType model.ConnectionType `json:"connection_type"`
	Host           string               `json:"host,omitempty"`
	Port           int                  `json:"port,omitempty"`
	Link           model.LinkConfig     `json:"link"`
	SuggestedKind  model.PrinterKind    `json:"suggested_kind"`
	Source         string               `json:"source"`
	Details        map[string]string    `json:"details,omitempty"`
}

// Key identifies the physical endpoint of the printer
func (p *DiscoveredPrinter) Key() string {
	switch p.ConnectionType {
	case model.ConnectionTypeSerial:
		return "serial:" + p.Link.Serial.Port
	case model.ConnectionTypeUSB:
		return fmt.Sprintf("usb:%s:%s", normalizeUSBID(p.Link.USB.VendorID), normalizeUSBID(p.Link.USB.ProductID))
	default:
		return fmt.Sprintf("tcp:%s:%d", p.Host, p.Port)
	}
}

func normalizeUSBID(id string) string {
	return strings.TrimPrefix(strings.ToLower(id), "0x")
}

// ScannerManager runs the registered scanners
type ScannerManager struct {
	scanners map[string]PrinterScanner
	logger   *zap.Logger
}

// NewScannerManager creates an empty scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]PrinterScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a scanner under its type
func (sm *ScannerManager) RegisterScanner(scanner PrinterScanner) {
	scannerType := scanner.GetScannerType()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner. A failing scanner is logged and
// skipped; duplicates reported by several scanners are merged.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredPrinter, error) {
	var all []*DiscoveredPrinter

	for _, scannerType := range sm.scannerTypes() {
		scanner := sm.scanners[scannerType]
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		printers, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		all = append(all, printers...)
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("printers_found", len(printers)),
		)
	}

	return Deduplicate(all), nil
}

// ScanByType runs one scanner
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredPrinter, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	printers, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return Deduplicate(printers), nil
}

// GetAvailableScanners lists the available scanner types, sorted
func (sm *ScannerManager) GetAvailableScanners() []string {
	var available []string
	for _, scannerType := range sm.scannerTypes() {
		if sm.scanners[scannerType].IsAvailable() {
			available = append(available, scannerType)
		}
	}
	return available
}

func (sm *ScannerManager) scannerTypes() []string {
	types := make([]string, 0, len(sm.scanners))
	for scannerType := range sm.scanners {
		types = append(types, scannerType)
	}
	sort.Strings(types)
	return types
}

// Deduplicate keeps the first printer per endpoint
func Deduplicate(printers []*DiscoveredPrinter) []*DiscoveredPrinter {
	seen := make(map[string]bool, len(printers))
	unique := make([]*DiscoveredPrinter, 0, len(printers))
	for _, p := range printers {
		key := p.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}
