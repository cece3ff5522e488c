// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// DefaultBaudRate is suggested for every serial candidate
const DefaultBaudRate = 9600

// PortLister returns the serial ports of the host
type PortLister func() ([]string, error)

// Scanner lists serial ports that may carry a fiscal or receipt printer.
// Ports are not opened; the printer answers only to its own protocol.
type Scanner struct {
	logger   *zap.Logger
	patterns []string
	list     PortLister
}

// NewScanner creates a serial scanner over go.bug.st/serial port enumeration
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger:   logger.With(zap.String("scanner", "serial")),
		patterns: defaultPortPatterns(),
		list:     serial.GetPortsList,
	}
}

// WithLister replaces the port enumeration
func (s *Scanner) WithLister(list PortLister) *Scanner {
	s.list = list
	return s
}

// GetScannerType returns "serial"
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable is true on every platform supported by go.bug.st/serial
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists candidate ports
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	s.logger.Info("Starting serial port scan")

	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	var found []*discovery.DiscoveredPrinter
	for _, port := range s.filterPorts(ports) {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		found = append(found, &discovery.DiscoveredPrinter{
			Name:           port,
			ConnectionType: model.ConnectionTypeSerial,
			Link: model.LinkConfig{
				Type:   model.ConnectionTypeSerial,
				Serial: model.SerialSettings{Port: port, BaudRate: DefaultBaudRate},
			},
			SuggestedKind: model.KindSF20TCP,
			Source:        "serial",
		})
	}

	s.logger.Info("Serial scan completed", zap.Int("printers_found", len(found)))
	return found, nil
}

func (s *Scanner) filterPorts(ports []string) []string {
	var filtered []string
	for _, port := range ports {
		for _, pattern := range s.patterns {
			if strings.Contains(port, pattern) {
				filtered = append(filtered, port)
				break
			}
		}
	}
	return filtered
}

func defaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM"}
	case "darwin":
		return []string{"/dev/cu.usbserial", "/dev/cu.usbmodem"}
	default:
		return []string{"/dev/ttyUSB", "/dev/ttyACM", "/dev/ttyS"}
	}
}
