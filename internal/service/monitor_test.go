package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

func TestMonitorCountsFailures(t *testing.T) {
	f := newDispatchFixture(t)
	f.document.connectErr = driver.NewTransportError(driver.KindTimeout, "connect", "10.0.0.6:9100", errors.New("i/o timeout"))

	publisher := &recordingPublisher{}
	monitor := NewMonitor(f.dispatcher, NewConfigDirectory(testPrinters()), publisher, time.Minute, zap.NewNop())

	monitor.PollOnce(context.Background())
	monitor.PollOnce(context.Background())

	assert.Equal(t, 0, monitor.Failures("pos-1", model.ClassFiscal))
	assert.Equal(t, 2, monitor.Failures("pos-1", model.ClassNonFiscal))

	// bar shares the failing fake document driver
	assert.Equal(t, 2, monitor.Failures("bar", model.ClassNonFiscal))

	f.document.mu.Lock()
	f.document.connectErr = nil
	f.document.mu.Unlock()
	monitor.PollOnce(context.Background())
	assert.Equal(t, 0, monitor.Failures("pos-1", model.ClassNonFiscal))
}

func TestMonitorPublishesStatusEvents(t *testing.T) {
	f := newDispatchFixture(t)
	publisher := &recordingPublisher{}
	directory := NewConfigDirectory(testPrinters())
	monitor := NewMonitor(f.dispatcher, directory, publisher, time.Minute, zap.NewNop())

	monitor.PollOnce(context.Background())

	events := publisher.all()
	require.Len(t, events, len(directory.Entries()))
	for _, event := range events {
		assert.Equal(t, model.EventTypePrinterStatus, event.Type)
		assert.Equal(t, "status", event.Action)
	}

	// the remote printer goes through the proxy, which is not configured
	last := events[len(events)-1]
	assert.Equal(t, "remote", last.Identity)
	assert.Equal(t, "error", last.Status)
	assert.Equal(t, 1, last.ConsecutiveFailures)

	// polls are not published as printer_action events
	assert.Empty(t, f.publisher.all())
}

func TestMonitorDisabled(t *testing.T) {
	f := newDispatchFixture(t)
	monitor := NewMonitor(f.dispatcher, NewConfigDirectory(testPrinters()), nil, 0, zap.NewNop())

	done := make(chan struct{})
	go func() {
		monitor.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor with zero interval should return immediately")
	}
}

func TestMonitorStopsOnCancel(t *testing.T) {
	f := newDispatchFixture(t)
	monitor := NewMonitor(f.dispatcher, NewConfigDirectory(testPrinters()), nil, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return monitor.Failures("remote", model.ClassNonFiscal) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
