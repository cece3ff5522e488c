package tcp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
)

func entry(instance string, ipv4 string, port int, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, "_pdl-datastream._tcp", "local.")
	if ipv4 != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ipv4)}
	}
	e.Port = port
	e.Text = txt
	return e
}

func fakeBrowser(results ...*zeroconf.ServiceEntry) Browser {
	return func(ctx context.Context, service, domain string, entries chan *zeroconf.ServiceEntry) error {
		go func() {
			defer close(entries)
			for _, e := range results {
				select {
				case entries <- e:
				case <-ctx.Done():
					return
				}
			}
			<-ctx.Done()
		}()
		return nil
	}
}

func TestScanCollectsEntries(t *testing.T) {
	s := NewScanner(zap.NewNop(), config.DiscoveryConfig{Timeout: 50 * time.Millisecond}).WithBrowser(fakeBrowser(
		entry("Kitchen", "192.168.1.40", 9100, "ty=EPSON TM-T20III", "usb_MFG=EPSON"),
		entry("Bar", "192.168.1.41", 0, "product=(TM-m30)"),
	))

	printers, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, printers, 2)

	assert.Equal(t, "Kitchen", printers[0].Name)
	assert.Equal(t, "192.168.1.40", printers[0].Host)
	assert.Equal(t, 9100, printers[0].Port)
	assert.Equal(t, "EPSON TM-T20III", printers[0].Model)
	assert.Equal(t, "EPSON", printers[0].Vendor)
	assert.Equal(t, model.KindEscposTCP, printers[0].SuggestedKind)

	assert.Equal(t, "TM-m30", printers[1].Model)
	assert.Equal(t, 9100, printers[1].Port, "missing port defaults to raw 9100")
}

func TestScanBrowseError(t *testing.T) {
	s := NewScanner(zap.NewNop(), config.DiscoveryConfig{}).WithBrowser(
		func(ctx context.Context, service, domain string, entries chan *zeroconf.ServiceEntry) error {
			return errors.New("no multicast interface")
		})

	_, err := s.Scan(context.Background())
	assert.ErrorContains(t, err, "no multicast interface")
}

func TestScannerDefaults(t *testing.T) {
	var gotService, gotDomain string
	s := NewScanner(zap.NewNop(), config.DiscoveryConfig{}).WithTimeout(10 * time.Millisecond).WithBrowser(
		func(ctx context.Context, service, domain string, entries chan *zeroconf.ServiceEntry) error {
			gotService, gotDomain = service, domain
			close(entries)
			return nil
		})

	printers, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, printers)
	assert.Equal(t, "_pdl-datastream._tcp", gotService)
	assert.Equal(t, "local.", gotDomain)
}

func TestFromEntryHostFallback(t *testing.T) {
	e := entry("NoAddr", "", 9100)
	e.HostName = "tm-t88.local."
	printer := FromEntry(e)
	require.NotNil(t, printer)
	assert.Equal(t, "tm-t88.local", printer.Host)
	assert.Equal(t, "tcp:tm-t88.local:9100", printer.Key())

	assert.Nil(t, FromEntry(entry("Ghost", "", 9100)))
	assert.Nil(t, FromEntry(nil))
}
