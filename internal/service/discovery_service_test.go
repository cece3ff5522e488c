package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

type stubScanner struct {
	scannerType string
	available   bool
	printers    []*discovery.DiscoveredPrinter
	err         error
}

func (s *stubScanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	return s.printers, s.err
}
func (s *stubScanner) GetScannerType() string { return s.scannerType }
func (s *stubScanner) IsAvailable() bool      { return s.available }

func tcpPrinter(host string, port int) *discovery.DiscoveredPrinter {
	return &discovery.DiscoveredPrinter{
		Name:           host,
		ConnectionType: model.ConnectionTypeTCP,
		Host:           host,
		Port:           port,
		SuggestedKind:  model.KindEscposTCP,
	}
}

func newTestDiscovery(scanners ...discovery.PrinterScanner) *DiscoveryService {
	manager := discovery.NewScannerManager(zap.NewNop())
	for _, s := range scanners {
		manager.RegisterScanner(s)
	}
	return NewDiscoveryServiceWithScanners(NewConfigDirectory(testPrinters()), manager, zap.NewNop())
}

func TestScanPrintersMarksConfigured(t *testing.T) {
	ds := newTestDiscovery(&stubScanner{
		scannerType: "tcp",
		available:   true,
		printers:    []*discovery.DiscoveredPrinter{tcpPrinter("10.0.0.6", 9100), tcpPrinter("10.0.0.99", 9100)},
	})

	printers, err := ds.ScanPrinters(context.Background(), ScanRequest{})
	require.NoError(t, err)
	require.Len(t, printers, 2)

	assert.Equal(t, "pos-1", printers[0].ConfiguredAs)
	assert.Empty(t, printers[1].ConfiguredAs)
	assert.Equal(t, "10.0.0.99", printers[1].Host)
}

func TestScanPrintersSkipsFailingScanner(t *testing.T) {
	ds := newTestDiscovery(
		&stubScanner{scannerType: "serial", available: true, err: errors.New("boom")},
		&stubScanner{scannerType: "tcp", available: true, printers: []*discovery.DiscoveredPrinter{tcpPrinter("10.0.0.50", 9100)}},
		&stubScanner{scannerType: "usb", available: false},
	)

	assert.Equal(t, []string{"serial", "tcp"}, ds.AvailableScanners())

	printers, err := ds.ScanPrinters(context.Background(), ScanRequest{ScanType: "all"})
	require.NoError(t, err)
	require.Len(t, printers, 1)

	_, err = ds.ScanPrinters(context.Background(), ScanRequest{ScanType: "usb"})
	assert.ErrorContains(t, err, "not available")

	_, err = ds.ScanPrinters(context.Background(), ScanRequest{ScanType: "bluetooth"})
	assert.ErrorContains(t, err, "unsupported scan type")
}

func TestScanPrintersDeduplicates(t *testing.T) {
	ds := newTestDiscovery(&stubScanner{
		scannerType: "tcp",
		available:   true,
		printers:    []*discovery.DiscoveredPrinter{tcpPrinter("10.0.0.50", 9100), tcpPrinter("10.0.0.50", 9100)},
	})

	printers, err := ds.ScanPrinters(context.Background(), ScanRequest{ScanType: "tcp"})
	require.NoError(t, err)
	assert.Len(t, printers, 1)
}
