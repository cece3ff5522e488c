// internal/driver/epos/client.go
package epos

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

// ServicePath is the ePOS-Print endpoint on the printer's web server
const ServicePath = "/cgi-bin/epos/service.cgi?devid=local_printer&timeout=60000"

const (
	defaultTimeout  = 10 * time.Second
	rawPort         = 9100
	maxResponseBody = 64 * 1024
)

// Client delegates receipt printing to an Epson printer through its ePOS-Print
// HTTP service. It holds no connection.
type Client struct {
	identity   string
	cfg        model.PrinterConfig
	endpoint   string
	httpClient *http.Client
	logger     *utils.PrinterLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default insecure-TLS client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithEndpoint overrides the URL built from the printer host
func WithEndpoint(url string) Option {
	return func(client *Client) {
		client.endpoint = url
	}
}

// NewClient creates an ePOS delegate for the configured host
func NewClient(identity string, cfg model.PrinterConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.Host == "" {
		return nil, driver.NewConfigError(driver.KindNotConfigured, "host", "ePOS printer host is required")
	}

	timeout := cfg.Params().Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// the raw printing port default says nothing about the web server
	host := cfg.Host
	if cfg.Port != 0 && cfg.Port != 443 && cfg.Port != rawPort {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	client := &Client{
		identity: identity,
		cfg:      cfg,
		endpoint: "https://" + host + ServicePath,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// printers ship self-signed certificates
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		logger: utils.NewPrinterLogger(logger, identity, string(model.ClassNonFiscal), string(model.KindEpsonEPOS)),
	}

	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Kind returns the driver kind
func (c *Client) Kind() model.PrinterKind {
	return model.KindEpsonEPOS
}

// Endpoint returns the ePOS service URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Connect is a no-op; every request is a standalone HTTP call
func (c *Client) Connect(ctx context.Context) error {
	return nil
}

// Disconnect is a no-op
func (c *Client) Disconnect(ctx context.Context) error {
	return nil
}

// IsConnected always reports true so the dispatcher never tries to connect
func (c *Client) IsConnected() bool {
	return true
}

// PrintReceipt prints the payload order, image or text, in that order of preference.
// Raw ESC/POS bytes cannot travel over ePOS-Print and are refused.
func (c *Client) PrintReceipt(ctx context.Context, payload model.ReceiptPayload) driver.ActionResult {
	start := time.Now()

	var (
		command  string
		message  string
		document []byte
	)
	switch {
	case payload.Order != nil:
		command, message = "print_comanda", "Comanda printed via ePOS"
		document = OrderDocument(*payload.Order, c.cfg.Width, c.cfg.AutoOpenDrawer)
	case payload.Image != "":
		data, err := payload.ImageBytes()
		if err != nil {
			err = driver.NewConfigError(driver.KindInvalidRange, "receipt", err.Error())
			return driver.Failure(err).WithDuration(time.Since(start))
		}
		command, message = "print_image", "Image printed via ePOS"
		document = ImageDocument(data)
	case payload.Raw != "":
		err := driver.NewDispatchError(driver.KindInvalidRequest, c.identity, "print_receipt", "raw ESC/POS is not supported by ePOS printers")
		return driver.Failure(err).WithDuration(time.Since(start))
	case strings.TrimSpace(payload.Text) != "":
		command, message = "print_text", "Text printed via ePOS"
		document = TextDocument(payload.Text)
	default:
		err := driver.NewConfigError(driver.KindNotConfigured, "payload", "nothing to print")
		return driver.Failure(err).WithDuration(time.Since(start))
	}

	if err := c.send(ctx, command, document); err != nil {
		return driver.Failure(err).WithDuration(time.Since(start))
	}
	return driver.OK(message, nil).WithDuration(time.Since(start))
}

// OpenCashbox sends a drawer pulse
func (c *Client) OpenCashbox(ctx context.Context) driver.ActionResult {
	start := time.Now()
	if err := c.send(ctx, "drawer", DrawerDocument()); err != nil {
		return driver.Failure(err).WithData("info", "drawer_failed").WithDuration(time.Since(start))
	}
	return driver.OK("Drawer pulse sent via ePOS", map[string]interface{}{
		"info": "drawer_opened_epos",
	}).WithDuration(time.Since(start))
}

// Status posts an empty print document and reports whether the printer accepted it
func (c *Client) Status(ctx context.Context) driver.ActionResult {
	start := time.Now()
	err := c.send(ctx, "status", EmptyDocument())

	result := driver.OK("Printer reachable", nil)
	if err != nil {
		result = driver.FailureWithMessage(fmt.Sprintf("Printer not reachable: %v", err), err)
	}
	return result.
		WithData("reachable", err == nil).
		WithData("endpoint", c.endpoint).
		WithDuration(time.Since(start))
}

// send posts one SOAP envelope and checks the ePOS response
func (c *Client) send(ctx context.Context, command string, body []byte) error {
	start := time.Now()
	err := c.post(ctx, body)
	c.logger.LogCommand(command, time.Since(start), err)
	return err
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &driver.DelegateError{Target: "epos", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &driver.DelegateError{Target: "epos", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &driver.DelegateError{
			Target:     "epos",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http_error: %d", resp.StatusCode),
		}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &driver.DelegateError{Target: "epos", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return checkResponse(respBody)
}

type eposResponse struct {
	XMLName xml.Name
	Success string `xml:"success,attr"`
	Code    string `xml:"code,attr"`
	Status  string `xml:"status,attr"`
}

// checkResponse finds the <response> element and rejects success="false".
// An empty or non-ePOS body is accepted.
func checkResponse(body []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "response" {
			continue
		}

		var resp eposResponse
		if err := decoder.DecodeElement(&resp, &start); err != nil {
			return nil
		}
		if resp.Success == "false" {
			detail := resp.Code
			if detail == "" {
				detail = "success=false"
			}
			return driver.NewProtocolError(driver.KindRejected, "epos", "", detail)
		}
		return nil
	}
}
