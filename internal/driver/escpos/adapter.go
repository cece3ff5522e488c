// internal/driver/escpos/adapter.go
package escpos

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

const defaultWidth = 32

// DocumentStatus reports the printer's reachability
type DocumentStatus struct {
	Ready      bool   `json:"ready"`
	Connected  bool   `json:"connected"`
	Responsive bool   `json:"responsive"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Width      int    `json:"width"`
}

// Adapter drives an ESC/POS kitchen or bar printer. Each call is a
// self-contained document; the only state is the ready flag set by Connect.
type Adapter struct {
	identity  string
	cfg       model.PrinterConfig
	codePage  CodePage
	width     int
	transport *protocol.Transport
	logger    *utils.PrinterLogger
	mutex     sync.Mutex
	ready     bool
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

// NewAdapter creates a disconnected ESC/POS adapter
func NewAdapter(identity string, cfg model.PrinterConfig, logger *zap.Logger, opts ...Option) (*Adapter, error) {
	options := &adapterOptions{}
	for _, opt := range opts {
		opt(options)
	}

	codePage, err := LookupCodePage(cfg.CodePage)
	if err != nil {
		return nil, driver.NewConfigError(driver.KindInvalidRange, "code_page", err.Error())
	}

	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}

	printerLogger := utils.NewPrinterLogger(logger, identity, string(model.ClassNonFiscal), string(model.KindEscposTCP))

	link := options.link
	if link == nil {
		link, err = protocol.NewLink(cfg.Params(), cfg.Link, printerLogger.Logger)
		if err != nil {
			return nil, driver.NewConfigError(driver.KindNotConfigured, "link", err.Error())
		}
	}

	return &Adapter{
		identity:  identity,
		cfg:       cfg,
		codePage:  codePage,
		width:     width,
		transport: protocol.NewTransport(link, printerLogger.Logger),
		logger:    printerLogger,
	}, nil
}

// Kind returns the driver kind
func (a *Adapter) Kind() model.PrinterKind {
	return model.KindEscposTCP
}

// Width returns the configured width in characters
func (a *Adapter) Width() int {
	return a.width
}

// Connect opens the transport and initializes the printer
func (a *Adapter) Connect(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.ready && a.transport.IsConnected() {
		return nil
	}

	if err := a.transport.Connect(ctx); err != nil {
		a.logger.LogConnection("connect", err)
		return err
	}

	if err := a.transport.SendAll(ctx, a.codePage.InitSequence()); err != nil {
		a.transport.Close()
		a.logger.LogConnection("initialize", err)
		return err
	}

	a.ready = true
	a.logger.LogConnection("connect", nil)
	return nil
}

// Disconnect closes the transport and clears the ready flag
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.ready = false
	a.transport.Close()
	a.logger.LogConnection("disconnect", nil)
	return nil
}

// IsConnected reports whether the printer is connected and initialized
func (a *Adapter) IsConnected() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.ready && a.transport.IsConnected()
}

// PrintComanda prints a kitchen ticket, then cuts and pulses the drawer on request
func (a *Adapter) PrintComanda(ctx context.Context, order model.Order, autoCut, openDrawer bool) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := a.send(ctx, "comanda", BuildComandaDocument(order, a.width, a.codePage)); err != nil {
		return err
	}
	if autoCut {
		if err := a.send(ctx, "cut", ESC_POS_COMMANDS.CUT_PARTIAL); err != nil {
			return err
		}
	}
	if openDrawer {
		if err := a.send(ctx, "drawer", ESC_POS_COMMANDS.DRAWER_KICK_PIN2); err != nil {
			return err
		}
	}
	return nil
}

// PrintText prints one formatted text job
func (a *Adapter) PrintText(ctx context.Context, job model.TextJob) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.send(ctx, "text", BuildTextDocument(job, a.codePage))
}

// CutPaper cuts the paper
func (a *Adapter) CutPaper(ctx context.Context, partial bool) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if partial {
		return a.send(ctx, "cut", ESC_POS_COMMANDS.CUT_PARTIAL)
	}
	return a.send(ctx, "cut", ESC_POS_COMMANDS.CUT_FULL)
}

// OpenDrawer sends the drawer kick pulse
func (a *Adapter) OpenDrawer(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.send(ctx, "drawer", ESC_POS_COMMANDS.DRAWER_KICK_PIN2)
}

// LineFeed feeds 1..255 lines
func (a *Adapter) LineFeed(ctx context.Context, lines int) error {
	if lines < 1 || lines > 255 {
		return driver.NewConfigError(driver.KindInvalidRange, "lines", fmt.Sprintf("%d is outside 1..255", lines))
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.send(ctx, "feed", NewDocument(a.codePage, a.width).Feed(lines).Bytes())
}

// PrintRaw sends caller-supplied ESC/POS bytes unchanged
func (a *Adapter) PrintRaw(ctx context.Context, data []byte) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.send(ctx, "raw", data)
}

// QueryStatus checks the connection; responsive means the init sequence could be resent
func (a *Adapter) QueryStatus(ctx context.Context) DocumentStatus {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	status := DocumentStatus{
		Connected: a.transport.IsConnected(),
		Host:      a.cfg.Host,
		Port:      a.cfg.Port,
		Width:     a.width,
	}
	status.Ready = a.ready && status.Connected

	if status.Ready {
		status.Responsive = a.transport.SendAll(ctx, a.codePage.InitSequence()) == nil
	}
	return status
}

// Status wraps QueryStatus into an ActionResult
func (a *Adapter) Status(ctx context.Context) driver.ActionResult {
	start := time.Now()
	status := a.QueryStatus(ctx)

	var result driver.ActionResult
	if status.Responsive {
		result = driver.OK("Printer ready", nil)
	} else {
		err := driver.NewProtocolError(driver.KindNotConnected, "status", "", "printer not responsive")
		result = driver.FailureWithMessage("Printer not responsive", err)
	}

	return result.
		WithData("ready", status.Ready).
		WithData("connected", status.Connected).
		WithData("responsive", status.Responsive).
		WithData("host", status.Host).
		WithData("port", status.Port).
		WithData("width", status.Width).
		WithDuration(time.Since(start))
}

// PrintReceipt prints whichever document the payload carries: an order,
// an image, raw bytes or plain text. Everything but the order is followed by a full cut.
func (a *Adapter) PrintReceipt(ctx context.Context, payload model.ReceiptPayload) driver.ActionResult {
	start := time.Now()

	message, err := a.printPayload(ctx, payload)
	if err != nil {
		a.logger.Warn("Document print failed", zap.Error(err))
		return driver.FailureWithMessage(fmt.Sprintf("Print failed: %v", err), err).
			WithDuration(time.Since(start))
	}

	return driver.OK(message, map[string]interface{}{
		"host": a.cfg.Host,
		"port": a.cfg.Port,
	}).WithDuration(time.Since(start))
}

func (a *Adapter) printPayload(ctx context.Context, payload model.ReceiptPayload) (string, error) {
	if payload.Order != nil {
		if err := a.PrintComanda(ctx, *payload.Order, a.cfg.AutoCut, a.cfg.AutoOpenDrawer); err != nil {
			return "", err
		}
		return "Comanda printed", nil
	}

	var document []byte
	switch {
	case payload.Image != "":
		data, err := payload.ImageBytes()
		if err != nil {
			return "", driver.NewConfigError(driver.KindInvalidRange, "receipt", err.Error())
		}
		document, err = RasterImage(data, rasterDots(a.width))
		if err != nil {
			return "", driver.NewConfigError(driver.KindInvalidRange, "receipt", err.Error())
		}
	case payload.Raw != "":
		data, err := payload.RawBytes()
		if err != nil {
			return "", driver.NewConfigError(driver.KindInvalidRange, "raw", err.Error())
		}
		document = data
	case payload.Text != "":
		document = NewDocument(a.codePage, a.width).Line(payload.Text).Bytes()
	default:
		return "", driver.NewConfigError(driver.KindNotConfigured, "payload", "nothing to print")
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := a.send(ctx, "receipt", document); err != nil {
		return "", err
	}
	if err := a.send(ctx, "cut", ESC_POS_COMMANDS.CUT_FULL); err != nil {
		return "", err
	}
	return "Receipt printed successfully", nil
}

// OpenCashbox pulses the drawer
func (a *Adapter) OpenCashbox(ctx context.Context) driver.ActionResult {
	start := time.Now()
	if err := a.OpenDrawer(ctx); err != nil {
		return driver.Failure(err).WithDuration(time.Since(start))
	}
	return driver.OK("Drawer pulse sent", map[string]interface{}{
		"info": "drawer_opened",
	}).WithDuration(time.Since(start))
}

// send writes one chunk. It fails with NotConnected until Connect has succeeded.
func (a *Adapter) send(ctx context.Context, command string, data []byte) error {
	if !a.ready || !a.transport.IsConnected() {
		return driver.NewProtocolError(driver.KindNotConnected, command, "", "printer not connected")
	}

	start := time.Now()
	err := a.transport.SendAll(ctx, data)
	a.logger.LogCommand(command, time.Since(start), err)
	return err
}
