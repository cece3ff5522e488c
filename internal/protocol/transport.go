// internal/protocol/transport.go
package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"go.uber.org/zap"

	"printer-service/pkg/driver"
)

const readChunkSize = 256

// Transport is the blocking request/response client used by both printer adapters.
// It does not serialize callers; adapters hold their own mutex around each exchange.
// A reset, broken pipe or EOF closes the link so the next caller reconnects;
// timeouts leave it open.
type Transport struct {
	link   Link
	logger *zap.Logger

	// bytes read past the last terminator, kept until the next send
	pending []byte
}

// NewTransport wraps a link
func NewTransport(link Link, logger *zap.Logger) *Transport {
	return &Transport{
		link:   link,
		logger: logger.With(zap.String("address", link.Address())),
	}
}

// Address returns the address of the underlying link
func (t *Transport) Address() string {
	return t.link.Address()
}

// IsConnected reports whether the link is open
func (t *Transport) IsConnected() bool {
	return t.link.IsOpen()
}

// Connect opens the link. Connecting an open link is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	if t.link.IsOpen() {
		return nil
	}
	t.pending = nil
	if err := t.link.Open(ctx); err != nil {
		return classifyError("connect", t.link.Address(), err)
	}
	return nil
}

// SendAll writes every byte of data
func (t *Transport) SendAll(ctx context.Context, data []byte) error {
	if !t.link.IsOpen() {
		return driver.NewTransportError(driver.KindRefused, "send", t.link.Address(), net.ErrClosed)
	}
	t.pending = nil
	if err := t.link.Write(ctx, data); err != nil {
		return t.fail(classifyError("send", t.link.Address(), err))
	}
	return nil
}

// ReceiveUntil accumulates chunks until terminator appears, the peer closes the stream,
// or maxBytes have been read, and returns what it has. The result may be a partial frame.
// Bytes following the terminator are served to the next ReceiveUntil and discarded
// by the next SendAll.
func (t *Transport) ReceiveUntil(ctx context.Context, terminator byte, maxBytes int) ([]byte, error) {
	buf := t.pending
	t.pending = nil
	if out, ok := t.take(buf, terminator, maxBytes); ok {
		return out, nil
	}
	if !t.link.IsOpen() {
		return nil, driver.NewTransportError(driver.KindRefused, "receive", t.link.Address(), net.ErrClosed)
	}

	for len(buf) < maxBytes {
		want := maxBytes - len(buf)
		if want > readChunkSize {
			want = readChunkSize
		}

		chunk, err := t.link.Read(ctx, want)
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
			if out, ok := t.take(buf, terminator, maxBytes); ok {
				return out, nil
			}
		}

		if err != nil {
			classified := t.fail(classifyError("receive", t.link.Address(), err))
			if len(buf) > 0 {
				t.logger.Debug("Returning partial response",
					zap.Int("bytes", len(buf)),
					zap.Error(err),
				)
				return buf, nil
			}
			return nil, classified
		}
	}
	return buf, nil
}

// take cuts buf after the first terminator, or at maxBytes, and keeps the rest pending
func (t *Transport) take(buf []byte, terminator byte, maxBytes int) ([]byte, bool) {
	end := bytes.IndexByte(buf, terminator) + 1
	if end == 0 || end > maxBytes {
		if len(buf) < maxBytes || len(buf) == 0 {
			return nil, false
		}
		end = maxBytes
	}

	if end < len(buf) {
		t.pending = append([]byte(nil), buf[end:]...)
	}
	return buf[:end:end], true
}

// fail closes the link when the peer is gone
func (t *Transport) fail(err *driver.TransportError) *driver.TransportError {
	if err.Kind == driver.KindRefused {
		t.logger.Warn("Link lost, closing", zap.Error(err))
		t.Close()
	}
	return err
}

// Close closes the link. Close errors are logged and swallowed.
func (t *Transport) Close() {
	t.pending = nil
	if !t.link.IsOpen() {
		return
	}
	if err := t.link.Close(); err != nil {
		t.logger.Warn("Error closing link", zap.Error(err))
	}

	if s, ok := t.link.(statsProvider); ok {
		stats := s.Stats()
		t.logger.Debug("Link closed",
			zap.Int64("bytes_written", stats.BytesWritten),
			zap.Int64("bytes_read", stats.BytesRead),
			zap.Int64("errors", stats.ErrorCount),
			zap.Duration("avg_latency", stats.AverageLatency),
		)
	}
}

type statsProvider interface {
	Stats() ProtocolStats
}

// classifyError maps link errors onto the transport taxonomy
func classifyError(op, addr string, err error) *driver.TransportError {
	var transportErr *driver.TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return driver.NewTransportError(driver.KindTimeout, op, addr, err)

	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return driver.NewTransportError(driver.KindRefused, op, addr, err)

	default:
		return driver.NewTransportError(driver.KindTransportUnknown, op, addr, err)
	}
}
