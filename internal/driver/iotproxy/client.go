// internal/driver/iotproxy/client.go
package iotproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"printer-service/pkg/driver"
)

// ActionPath is the proxy endpoint that executes printer actions
const ActionPath = "/hw_proxy/printer_action"

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 1 << 20
)

// Request is the body posted to the proxy
type Request struct {
	PrinterID string          `json:"printer_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response is the proxy answer. Extra keys are kept in Details by the client.
type Response struct {
	Result  bool   `json:"result"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client forwards printer actions to a remote IoT proxy box
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a proxy client. A zero timeout uses 30s.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, driver.NewConfigError(driver.KindNotConfigured, "proxy.url", "IoT proxy URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "iot_proxy")),
	}, nil
}

// Forward posts the action and normalizes the proxy answer into an ActionResult.
// Only network and HTTP failures are returned as errors.
func (c *Client) Forward(ctx context.Context, identity, action string, payload json.RawMessage) (driver.ActionResult, error) {
	start := time.Now()

	body, err := json.Marshal(Request{PrinterID: identity, Action: action, Payload: payload})
	if err != nil {
		return driver.ActionResult{}, fmt.Errorf("failed to encode proxy request: %w", err)
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		c.logger.Warn("IoT proxy request failed",
			zap.String("printer_id", identity),
			zap.String("action", action),
			zap.Error(err),
		)
		return driver.ActionResult{}, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return driver.ActionResult{}, &driver.DelegateError{Target: "iot_proxy", Err: fmt.Errorf("invalid proxy response: %w", err)}
	}
	var details map[string]interface{}
	_ = json.Unmarshal(raw, &details)

	message := resp.Message
	var result driver.ActionResult
	if resp.Result {
		if message == "" {
			message = "Printed via IoT"
		}
		result = driver.OK(message, nil)
	} else {
		if message == "" {
			message = resp.Error
		}
		if message == "" {
			message = "IoT proxy reported failure"
		}
		result = driver.ActionResult{Status: driver.StatusError, Message: message, ErrorKind: driver.KindDelegate}
	}

	c.logger.Debug("IoT proxy action forwarded",
		zap.String("printer_id", identity),
		zap.String("action", action),
		zap.Bool("result", resp.Result),
		zap.Duration("duration", time.Since(start)),
	)

	return result.
		WithData("details", details).
		WithData("info", "via_iot").
		WithDuration(time.Since(start)), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ActionPath, bytes.NewReader(body))
	if err != nil {
		return nil, &driver.DelegateError{Target: "iot_proxy", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &driver.DelegateError{Target: "iot_proxy", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &driver.DelegateError{
			Target:     "iot_proxy",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http_error: %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &driver.DelegateError{Target: "iot_proxy", Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return raw, nil
}
