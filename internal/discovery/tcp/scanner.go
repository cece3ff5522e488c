// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

const drainGrace = 200 * time.Millisecond

// Browser streams mDNS service entries until ctx is done
type Browser func(ctx context.Context, service, domain string, entries chan *zeroconf.ServiceEntry) error

// Scanner finds network printers advertising a raw TCP print service over mDNS
type Scanner struct {
	logger  *zap.Logger
	service string
	domain  string
	timeout time.Duration
	browse  Browser
}

// NewScanner creates an mDNS scanner from the discovery configuration
func NewScanner(logger *zap.Logger, cfg config.DiscoveryConfig) *Scanner {
	s := &Scanner{
		logger:  logger.With(zap.String("scanner", "tcp")),
		service: cfg.Service,
		domain:  cfg.Domain,
		timeout: cfg.Timeout,
		browse:  browseZeroconf,
	}
	if s.service == "" {
		s.service = "_pdl-datastream._tcp"
	}
	if s.domain == "" {
		s.domain = "local."
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	return s
}

// WithBrowser replaces the mDNS resolver
func (s *Scanner) WithBrowser(browse Browser) *Scanner {
	s.browse = browse
	return s
}

// WithTimeout overrides the browse window
func (s *Scanner) WithTimeout(timeout time.Duration) *Scanner {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// GetScannerType returns "tcp"
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable is always true; multicast failures surface from Scan
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan browses for the configured service until the timeout elapses
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	s.logger.Info("Starting mDNS browse",
		zap.String("service", s.service),
		zap.String("domain", s.domain),
		zap.Duration("timeout", s.timeout),
	)

	browseCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mutex sync.Mutex
		found []*discovery.DiscoveredPrinter
	)
	entries := make(chan *zeroconf.ServiceEntry)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for entry := range entries {
			printer := FromEntry(entry)
			if printer == nil {
				continue
			}
			mutex.Lock()
			found = append(found, printer)
			mutex.Unlock()
		}
	}()

	if err := s.browse(browseCtx, s.service, s.domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse failed: %w", err)
	}
	<-browseCtx.Done()

	// the resolver closes entries once the browse context ends
	select {
	case <-drained:
	case <-time.After(drainGrace):
	}

	mutex.Lock()
	printers := append([]*discovery.DiscoveredPrinter(nil), found...)
	mutex.Unlock()

	s.logger.Info("mDNS browse completed", zap.Int("printers_found", len(printers)))
	return printers, nil
}

// FromEntry converts an mDNS answer into a printer candidate. Entries
// without an address are skipped.
func FromEntry(entry *zeroconf.ServiceEntry) *discovery.DiscoveredPrinter {
	if entry == nil {
		return nil
	}

	host := ""
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case entry.HostName != "":
		host = strings.TrimSuffix(entry.HostName, ".")
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = 9100
	}

	txt := parseTXT(entry.Text)
	printer := &discovery.DiscoveredPrinter{
		Name:           entry.Instance,
		Model:          printerModel(txt),
		Vendor:         txt["usb_MFG"],
		ConnectionType: model.ConnectionTypeTCP,
		Host:           host,
		Port:           port,
		Link:           model.LinkConfig{Type: model.ConnectionTypeTCP},
		SuggestedKind:  model.KindEscposTCP,
		Source:         "mdns",
		Details:        txt,
	}
	return printer
}

func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, record := range records {
		key, value, ok := strings.Cut(record, "=")
		if !ok || key == "" {
			continue
		}
		txt[key] = value
	}
	return txt
}

// printerModel reads the model from the Bonjour printing TXT keys
func printerModel(txt map[string]string) string {
	if product := strings.Trim(txt["product"], "()"); product != "" {
		return product
	}
	if ty := txt["ty"]; ty != "" {
		return ty
	}
	return txt["usb_MDL"]
}

func browseZeroconf(ctx context.Context, service, domain string, entries chan *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}
	return resolver.Browse(ctx, service, domain, entries)
}
