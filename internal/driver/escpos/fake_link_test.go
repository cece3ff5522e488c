package escpos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// recordingLink is an in-memory Link that keeps every chunk written to it
type recordingLink struct {
	mu       sync.Mutex
	open     bool
	openErr  error
	writeErr error
	writes   [][]byte
}

func (l *recordingLink) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return l.openErr
	}
	l.open = true
	return nil
}

func (l *recordingLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	return nil
}

func (l *recordingLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *recordingLink) Write(ctx context.Context, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return l.writeErr
	}
	l.writes = append(l.writes, append([]byte(nil), data...))
	return nil
}

func (l *recordingLink) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	return nil, io.EOF
}

func (l *recordingLink) GetProtocolType() model.ConnectionType { return model.ConnectionTypeTCP }
func (l *recordingLink) Address() string                       { return "fake:9100" }

// sent returns the chunks written after the connect init sequence
func (l *recordingLink) sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.writes) == 0 {
		return nil
	}
	return l.writes[1:]
}

func (l *recordingLink) failWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

func newTestAdapter(t *testing.T, cfg model.PrinterConfig) (*Adapter, *recordingLink) {
	t.Helper()

	link := &recordingLink{}
	cfg.Kind = model.KindEscposTCP
	if cfg.Host == "" {
		cfg.Host = "10.0.0.9"
		cfg.Port = 9100
	}

	adapter, err := NewAdapter("kitchen-1", cfg, zap.NewNop(), WithLink(link))
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	return adapter, link
}

// render shows control bytes as <XX> and ends a line after each LF
func render(data []byte) []byte {
	var buf bytes.Buffer
	for _, b := range data {
		switch {
		case b == '\n':
			buf.WriteString("<LF>\n")
		case b < 0x20 || b >= 0x7F:
			fmt.Fprintf(&buf, "<%02X>", b)
		default:
			buf.WriteByte(b)
		}
	}
	return buf.Bytes()
}
