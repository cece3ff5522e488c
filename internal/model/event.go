// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of printer event
type EventType string

const (
	EventTypePrinterAction EventType = "printer_action"
	EventTypePrinterStatus EventType = "printer_status"
)

// PrinterEvent is published after every dispatched action and monitor poll
type PrinterEvent struct {
	ID                  uuid.UUID              `json:"id"`
	Type                EventType              `json:"type"`
	Identity            string                 `json:"identity"`
	Class               PrinterClass           `json:"class"`
	Action              string                 `json:"action"`
	Status              string                 `json:"status"`
	Message             string                 `json:"message"`
	ResponseTimeMs      int64                  `json:"response_time_ms"`
	ConsecutiveFailures int                    `json:"consecutive_failures,omitempty"`
	Data                map[string]interface{} `json:"data,omitempty"`
	Timestamp           time.Time              `json:"timestamp"`
}

// NewPrinterEvent stamps a new event
func NewPrinterEvent(eventType EventType, identity string, class PrinterClass, action string) PrinterEvent {
	return PrinterEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Identity:  identity,
		Class:     class,
		Action:    action,
		Timestamp: time.Now(),
	}
}
