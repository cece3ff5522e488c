// internal/driver/sf20/adapter.go
package sf20

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/protocol"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

const maxResponseBytes = 1024

// State is the fiscal receipt state owned by one adapter
type State string

const (
	StateInit            State = "init"
	StateReceiptOpen     State = "receipt_open"
	StateReceiptClosed   State = "receipt_closed"
	StateZReportRequired State = "z_report_required"
	StateMemoryFull      State = "memory_full"
	StateError           State = "error"

	// StateUnknown is only ever reported by Status, never stored
	StateUnknown State = "unknown"
)

// Adapter drives an SF20 style fiscal printer. Calls on one adapter are serialized.
// The stored state changes only on protocol acknowledgements; transport failures
// leave it untouched.
type Adapter struct {
	identity   string
	cfg        model.PrinterConfig
	transport  *protocol.Transport
	logger     *utils.PrinterLogger
	audit      *utils.AuditLogger
	mutex      sync.Mutex
	state      State
	department uint8
	operatorID int
}

// Option configures an Adapter
type Option func(*adapterOptions)

type adapterOptions struct {
	link protocol.Link
}

// WithLink replaces the link built from the printer configuration
func WithLink(link protocol.Link) Option {
	return func(o *adapterOptions) {
		o.link = link
	}
}

// NewAdapter creates a disconnected fiscal adapter
func NewAdapter(identity string, cfg model.PrinterConfig, logger *zap.Logger, opts ...Option) (*Adapter, error) {
	options := &adapterOptions{}
	for _, opt := range opts {
		opt(options)
	}

	printerLogger := utils.NewPrinterLogger(logger, identity, string(model.ClassFiscal), string(model.KindSF20TCP))

	link := options.link
	if link == nil {
		var err error
		link, err = protocol.NewLink(cfg.Params(), cfg.Link, printerLogger.Logger)
		if err != nil {
			return nil, driver.NewConfigError(driver.KindNotConfigured, "link", err.Error())
		}
	}

	department := uint8(1)
	if cfg.Department >= 1 && cfg.Department <= 255 {
		department = uint8(cfg.Department)
	}
	operatorID := 1
	if cfg.OperatorID >= 1 && cfg.OperatorID <= 255 {
		operatorID = cfg.OperatorID
	}

	return &Adapter{
		identity:   identity,
		cfg:        cfg,
		transport:  protocol.NewTransport(link, printerLogger.Logger),
		logger:     printerLogger,
		audit:      utils.NewAuditLogger(logger),
		department: department,
		operatorID: operatorID,
	}, nil
}

// Kind returns the driver kind
func (a *Adapter) Kind() model.PrinterKind {
	return model.KindSF20TCP
}

// FailSafe reports the configured fail-safe policy
func (a *Adapter) FailSafe() bool {
	return a.cfg.FailSafe
}

// State returns the last protocol-acknowledged state
func (a *Adapter) State() State {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state
}

// Connect opens the transport. The first successful connect puts the adapter in
// init; a reconnect keeps the last acknowledged state.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.transport.IsConnected() {
		return nil
	}

	err := a.transport.Connect(ctx)
	a.logger.LogConnection("connect", err)
	if err != nil {
		return err
	}

	if a.state == "" {
		a.setState(StateInit)
	}
	return nil
}

// Disconnect closes the transport
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.transport.Close()
	a.logger.LogConnection("disconnect", nil)
	return nil
}

// IsConnected reports whether the transport is open
func (a *Adapter) IsConnected() bool {
	return a.transport.IsConnected()
}

// OpenCashbox is a no-op: fiscal printers open the drawer when a receipt closes
func (a *Adapter) OpenCashbox(ctx context.Context) driver.ActionResult {
	return driver.OK("Drawer opens on receipt close", map[string]interface{}{
		"info": "drawer_opens_on_receipt_close",
	})
}

func (a *Adapter) setState(state State) {
	a.logger.LogStateChange(string(a.state), string(state))
	a.state = state
}

func (a *Adapter) requireOpen(op string) error {
	if a.state != StateReceiptOpen {
		return driver.NewProtocolError(driver.KindNotOpen, op, string(a.state), "")
	}
	return nil
}

// exchange sends one frame and returns the validated response.
// A NAK response is a printer rejection.
func (a *Adapter) exchange(ctx context.Context, cmd byte, payload []byte) (ParsedFrame, error) {
	start := time.Now()
	resp, err := a.roundTrip(ctx, cmd, payload)
	a.logger.LogCommand(CommandName(cmd), time.Since(start), err)
	return resp, err
}

func (a *Adapter) roundTrip(ctx context.Context, cmd byte, payload []byte) (ParsedFrame, error) {
	if err := a.transport.SendAll(ctx, Frame(cmd, payload)); err != nil {
		return ParsedFrame{}, err
	}

	raw, err := a.transport.ReceiveUntil(ctx, ETX, maxResponseBytes)
	if err != nil {
		return ParsedFrame{}, err
	}
	if checksumIsETX(raw) {
		tail, err := a.transport.ReceiveUntil(ctx, ETX, 1)
		if err != nil {
			return ParsedFrame{}, err
		}
		raw = append(raw, tail...)
	}

	resp, err := ParseFrame(raw)
	if err != nil {
		return ParsedFrame{}, fmt.Errorf("%s response: %w", CommandName(cmd), err)
	}

	if resp.Command == NAK {
		return resp, driver.NewProtocolError(driver.KindRejected, CommandName(cmd), string(a.state), responseText(resp.Payload))
	}
	return resp, nil
}

// checksumIsETX reports whether the ETX ending raw is the checksum byte of a
// frame whose real ETX is still unread. A complete frame folds to zero over
// cmd, payload and checksum, so the two cases cannot be confused.
func checksumIsETX(raw []byte) bool {
	if len(raw) < 3 || raw[0] != STX || raw[len(raw)-1] != ETX {
		return false
	}
	return Checksum(raw[1:len(raw)-1]) == ETX
}
