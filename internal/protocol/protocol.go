// internal/protocol/protocol.go
package protocol

import (
	"context"
	"sync"
	"time"

	"printer-service/internal/model"
)

// Link is a raw byte-stream connection to a printer
type Link interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication. Read returns io.EOF once the peer has closed the stream.
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)

	// Protocol information
	GetProtocolType() model.ConnectionType
	Address() string
}

// ProtocolStats provides link-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// linkStats guards ProtocolStats; links update it under their read lock
type linkStats struct {
	mu    sync.Mutex
	stats ProtocolStats
}

func (l *linkStats) setConnected(connected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.IsConnected = connected
	if connected {
		l.stats.LastActivity = time.Now()
	}
}

func (l *linkStats) recordWrite(n int, latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.BytesWritten += int64(n)
	l.stats.OperationCount++
	l.stats.LastActivity = time.Now()
	if l.stats.AverageLatency == 0 {
		l.stats.AverageLatency = latency
	} else {
		l.stats.AverageLatency = (l.stats.AverageLatency + latency) / 2
	}
}

func (l *linkStats) recordRead(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.BytesRead += int64(n)
	l.stats.OperationCount++
	l.stats.LastActivity = time.Now()
}

func (l *linkStats) recordError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.ErrorCount++
}

func (l *linkStats) snapshot() ProtocolStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// ioDeadline returns now+timeout, or the context deadline when that comes first
func ioDeadline(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	return deadline
}
