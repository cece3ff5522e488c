// internal/service/dispatcher.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	internalDriver "printer-service/internal/driver"
	"printer-service/internal/model"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

// Request is one printer action coming from a POS client
type Request struct {
	Identity string             `json:"identity" binding:"required"`
	Class    model.PrinterClass `json:"class,omitempty"`
	Action   string             `json:"action" binding:"required"`
	Payload  json.RawMessage    `json:"payload,omitempty" swaggertype:"object"`
}

// Authorizer decides whether the caller may run action on identity
type Authorizer func(ctx context.Context, identity, action string) bool

// AllowAll is the default Authorizer
func AllowAll(ctx context.Context, identity, action string) bool {
	return true
}

// EventPublisher receives an event after every dispatched action
type EventPublisher interface {
	PublishPrinterEvent(event model.PrinterEvent)
}

// Forwarder runs an action on a remote IoT proxy
type Forwarder interface {
	Forward(ctx context.Context, identity, action string, payload json.RawMessage) (driver.ActionResult, error)
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithAuthorizer installs an access check
func WithAuthorizer(authorizer Authorizer) DispatcherOption {
	return func(d *Dispatcher) {
		d.authorizer = authorizer
	}
}

// WithForwarder installs the IoT proxy used by printers configured with use_proxy
func WithForwarder(forwarder Forwarder) DispatcherOption {
	return func(d *Dispatcher) {
		d.forwarder = forwarder
	}
}

// WithPublisher installs an event publisher
func WithPublisher(publisher EventPublisher) DispatcherOption {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

// Dispatcher maps named actions onto printer drivers and normalizes every
// outcome into an ActionResult.
type Dispatcher struct {
	directory  Directory
	registry   *internalDriver.Registry
	authorizer Authorizer
	forwarder  Forwarder
	publisher  EventPublisher
	logger     *utils.ServiceLogger
}

// NewDispatcher creates a dispatcher over the given directory and registry
func NewDispatcher(directory Directory, registry *internalDriver.Registry, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		directory:  directory,
		registry:   registry,
		authorizer: AllowAll,
		logger:     utils.NewServiceLogger(logger, "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PrinterState is a configured printer with its driver instance state
type PrinterState struct {
	PrinterEntry
	Instantiated bool `json:"instantiated"`
	Connected    bool `json:"connected"`
}

// Printers lists the configured printers. A printer has no driver instance
// until its first action.
func (d *Dispatcher) Printers() []PrinterState {
	entries := d.directory.Entries()
	states := make([]PrinterState, 0, len(entries))
	for _, entry := range entries {
		state := PrinterState{PrinterEntry: entry}
		if instance, ok := d.registry.Get(entry.Identity, entry.Class); ok {
			state.Instantiated = true
			state.Connected = instance.IsConnected()
		}
		states = append(states, state)
	}
	return states
}

// Dispatch runs the request and publishes the outcome
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) driver.ActionResult {
	result, class := d.Execute(ctx, req)

	if d.publisher != nil {
		event := model.NewPrinterEvent(model.EventTypePrinterAction, req.Identity, class, req.Action)
		event.Status = string(result.Status)
		event.Message = result.Message
		event.ResponseTimeMs = result.ResponseTimeMs
		event.Data = result.Data
		d.publisher.PublishPrinterEvent(event)
	}
	return result
}

// Execute runs the request without publishing. It returns the resolved class,
// which is empty when the request failed before class resolution.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (driver.ActionResult, model.PrinterClass) {
	start := time.Now()

	opLogger := utils.NewOperationLogger(d.logger.Logger, req.Action, uuid.New().String())
	opLogger.Start(zap.String("printer_id", req.Identity), zap.String("class", string(req.Class)))

	result, class := d.execute(ctx, req)
	if result.ResponseTimeMs == 0 {
		result = result.WithDuration(time.Since(start))
	}
	if class == model.ClassNonFiscal {
		result = result.WithData("non_blocking", true)
	}

	if result.IsOK() {
		opLogger.Success(zap.String("class", string(class)))
	} else {
		opLogger.Error(fmt.Errorf("%s", result.Message),
			zap.String("class", string(class)),
			zap.String("error_kind", string(result.ErrorKind)),
			zap.Bool("can_retry", result.CanRetry),
		)
	}
	return result, class
}

func (d *Dispatcher) execute(ctx context.Context, req Request) (driver.ActionResult, model.PrinterClass) {
	if !d.authorizer(ctx, req.Identity, req.Action) {
		return dispatchFailure(driver.KindAccessDenied, req, "access denied"), ""
	}

	def, exists := actions[req.Action]
	if !exists {
		return dispatchFailure(driver.KindUnimplementedAction, req, "unknown action"), ""
	}

	class := d.resolveClass(req, def.scope)
	cfg, found := d.directory.Lookup(req.Identity, class)
	if !found {
		return dispatchFailure(driver.KindNotFound, req, fmt.Sprintf("no %s printer configured", class)), class
	}

	if cfg.UseProxy && def.forwardable {
		return d.forward(ctx, req), class
	}

	if def.local != nil {
		return def.local(ctx, d, req, class), class
	}

	instance, err := d.registry.Create(req.Identity, class, cfg)
	if err != nil {
		return driver.Failure(err), class
	}

	if !instance.IsConnected() {
		if err := instance.Connect(ctx); err != nil && !def.offline {
			return driver.FailureWithMessage(fmt.Sprintf("Printer connection failed: %v", err), err), class
		}
	}

	return def.run(ctx, instance, cfg, req), class
}

// resolveClass picks the printer class: explicit, implied by the action, or
// fiscal when the identity has one configured.
func (d *Dispatcher) resolveClass(req Request, scope actionScope) model.PrinterClass {
	if req.Class.Valid() {
		return req.Class
	}
	switch scope {
	case scopeFiscal:
		return model.ClassFiscal
	case scopeDocument:
		return model.ClassNonFiscal
	}
	if _, ok := d.directory.Lookup(req.Identity, model.ClassFiscal); ok {
		return model.ClassFiscal
	}
	return model.ClassNonFiscal
}

func (d *Dispatcher) forward(ctx context.Context, req Request) driver.ActionResult {
	if d.forwarder == nil {
		err := driver.NewConfigError(driver.KindNotConfigured, "proxy.url", "printer uses the IoT proxy but none is configured")
		return driver.Failure(err)
	}

	result, err := d.forwarder.Forward(ctx, req.Identity, req.Action, req.Payload)
	if err != nil {
		return driver.FailureWithMessage(fmt.Sprintf("IoT proxy error: %v", err), err).WithData("info", "via_iot")
	}
	return result
}

func dispatchFailure(kind driver.ErrorKind, req Request, detail string) driver.ActionResult {
	return driver.Failure(driver.NewDispatchError(kind, req.Identity, req.Action, detail))
}
