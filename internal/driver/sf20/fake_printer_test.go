package sf20

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// fakePrinter is an in-memory Link that answers every frame through handler
type fakePrinter struct {
	mu         sync.Mutex
	open       bool
	openErr    error
	handler    func(cmd byte, payload []byte) ([]byte, error)
	pending    []byte
	pendingErr error
	sent       []ParsedFrame
}

func (f *fakePrinter) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakePrinter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakePrinter) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakePrinter) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	frame, err := ParseFrame(data)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, frame)
	f.pending, f.pendingErr = f.handler(frame.Command, frame.Payload)
	return nil
}

func (f *fakePrinter) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pendingErr != nil {
		err := f.pendingErr
		f.pendingErr = nil
		return nil, err
	}
	if len(f.pending) == 0 {
		return nil, io.EOF
	}
	n := maxBytes
	if n > len(f.pending) {
		n = len(f.pending)
	}
	chunk := f.pending[:n]
	f.pending = f.pending[n:]
	return chunk, nil
}

func (f *fakePrinter) GetProtocolType() model.ConnectionType { return model.ConnectionTypeTCP }
func (f *fakePrinter) Address() string                       { return "fake:9100" }

// count returns how many frames with cmd were sent
func (f *fakePrinter) count(cmd byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, frame := range f.sent {
		if frame.Command == cmd {
			n++
		}
	}
	return n
}

func (f *fakePrinter) last() ParsedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// ackAll acknowledges every command, answering close with a fiscal number
func ackAll(cmd byte, payload []byte) ([]byte, error) {
	switch cmd {
	case CmdOpenReceipt:
		return Frame(ACK, []byte("R0001")), nil
	case CmdCloseReceipt:
		return Frame(ACK, []byte("FN 00042 OK")), nil
	case CmdStatus:
		return Frame(ACK, []byte("READY;7")), nil
	default:
		return Frame(ACK, []byte("OK")), nil
	}
}

func newTestAdapter(t *testing.T, failSafe bool, handler func(byte, []byte) ([]byte, error)) (*Adapter, *fakePrinter) {
	t.Helper()

	printer := &fakePrinter{handler: handler}
	cfg := model.PrinterConfig{
		Kind:           model.KindSF20TCP,
		Host:           "10.0.0.5",
		Port:           9100,
		TimeoutSeconds: 1,
		FailSafe:       failSafe,
		Department:     1,
		OperatorID:     1,
	}

	adapter, err := NewAdapter("pos-1", cfg, zap.NewNop(), WithLink(printer))
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	return adapter, printer
}
