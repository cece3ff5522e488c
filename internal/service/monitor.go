// internal/service/monitor.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
)

// Monitor polls the status of every configured printer and publishes the
// outcome. It keeps a consecutive failure count per printer.
type Monitor struct {
	dispatcher *Dispatcher
	directory  Directory
	publisher  EventPublisher
	interval   time.Duration
	failures   map[PrinterEntryKey]int
	mutex      sync.Mutex
	logger     *utils.ServiceLogger
}

// PrinterEntryKey identifies a monitored printer
type PrinterEntryKey struct {
	Identity string
	Class    model.PrinterClass
}

// NewMonitor creates a status monitor. A nil publisher only logs.
func NewMonitor(dispatcher *Dispatcher, directory Directory, publisher EventPublisher, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		dispatcher: dispatcher,
		directory:  directory,
		publisher:  publisher,
		interval:   interval,
		failures:   make(map[PrinterEntryKey]int),
		logger:     utils.NewServiceLogger(logger, "status-monitor"),
	}
}

// Start polls until ctx is done. It returns immediately when the interval is zero.
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Info("Status monitor disabled")
		return
	}

	m.logger.Info("Status monitor started", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Status monitor stopped")
			return
		case <-ticker.C:
			m.PollOnce(ctx)
		}
	}
}

// PollOnce checks every configured printer once
func (m *Monitor) PollOnce(ctx context.Context) {
	for _, entry := range m.directory.Entries() {
		if ctx.Err() != nil {
			return
		}
		m.poll(ctx, entry)
	}
}

// Failures returns the consecutive failure count of a printer
func (m *Monitor) Failures(identity string, class model.PrinterClass) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.failures[PrinterEntryKey{Identity: identity, Class: class}]
}

func (m *Monitor) poll(ctx context.Context, entry PrinterEntry) {
	timeout := entry.Config.Params().Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, _ := m.dispatcher.Execute(pollCtx, Request{
		Identity: entry.Identity,
		Class:    entry.Class,
		Action:   "status",
	})

	key := PrinterEntryKey{Identity: entry.Identity, Class: entry.Class}
	m.mutex.Lock()
	if result.IsOK() {
		m.failures[key] = 0
	} else {
		m.failures[key]++
	}
	failures := m.failures[key]
	m.mutex.Unlock()

	if failures > 0 {
		m.logger.Warn("Printer status check failed",
			zap.String("printer_id", entry.Identity),
			zap.String("class", string(entry.Class)),
			zap.Int("consecutive_failures", failures),
			zap.String("message", result.Message),
		)
	}

	if m.publisher == nil {
		return
	}
	event := model.NewPrinterEvent(model.EventTypePrinterStatus, entry.Identity, entry.Class, "status")
	event.Status = string(result.Status)
	event.Message = result.Message
	event.ResponseTimeMs = result.ResponseTimeMs
	event.ConsecutiveFailures = failures
	event.Data = result.Data
	m.publisher.PublishPrinterEvent(event)
}
