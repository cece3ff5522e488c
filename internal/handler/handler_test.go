package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/config"
	internalDriver "printer-service/internal/driver"
	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubPrinter answers status with a fixed result
type stubPrinter struct {
	mu        sync.Mutex
	kind      model.PrinterKind
	connected bool
	status    driver.ActionResult
}

func (s *stubPrinter) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *stubPrinter) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *stubPrinter) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubPrinter) Kind() model.PrinterKind { return s.kind }

func (s *stubPrinter) PrintReceipt(ctx context.Context, payload model.ReceiptPayload) driver.ActionResult {
	return driver.OK("Receipt printed", nil)
}

func (s *stubPrinter) OpenCashbox(ctx context.Context) driver.ActionResult {
	return driver.OK("Cashbox opened", nil)
}

func (s *stubPrinter) Status(ctx context.Context) driver.ActionResult { return s.status }

type handlerFixture struct {
	config     *config.Config
	registry   *internalDriver.Registry
	directory  *service.ConfigDirectory
	dispatcher *service.Dispatcher
	bus        *EventBus
	engine     *gin.Engine
	fiscal     *stubPrinter
	kitchen    *stubPrinter
}

func newHandlerFixture(t *testing.T, printers map[string]config.PrinterSet) *handlerFixture {
	t.Helper()

	timeout := driver.NewTransportError(driver.KindTimeout, "read", "10.0.0.5:9100", errors.New("i/o timeout"))
	f := &handlerFixture{
		config: &config.Config{
			App: config.AppConfig{Name: "printer-service", Version: "test"},
		},
		registry:  internalDriver.NewRegistry(zap.NewNop()),
		directory: service.NewConfigDirectory(printers),
		bus:       NewEventBus(zap.NewNop()),
		fiscal:    &stubPrinter{kind: model.KindSF20TCP, status: driver.Failure(timeout)},
		kitchen:   &stubPrinter{kind: model.KindEscposTCP, status: driver.Failure(timeout)},
	}
	f.registry.Register(model.KindSF20TCP, func(string, model.PrinterConfig, *zap.Logger) (driver.PrinterDriver, error) {
		return f.fiscal, nil
	})
	f.registry.Register(model.KindEscposTCP, func(string, model.PrinterConfig, *zap.Logger) (driver.PrinterDriver, error) {
		return f.kitchen, nil
	})

	denyZReport := func(ctx context.Context, identity, action string) bool {
		return action != "z_report"
	}
	f.dispatcher = service.NewDispatcher(f.directory, f.registry, zap.NewNop(),
		service.WithAuthorizer(denyZReport),
		service.WithPublisher(f.bus),
	)

	printerHandler := NewPrinterHandler(f.dispatcher, zap.NewNop())
	healthHandler := NewHealthHandler(f.config, f.registry, f.directory, zap.NewNop())

	f.engine = gin.New()
	f.engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Next()
	})
	f.engine.GET("/health", healthHandler.HealthCheck)
	f.engine.GET("/ready", healthHandler.ReadinessCheck)
	f.engine.GET("/live", healthHandler.LivenessCheck)
	api := f.engine.Group("/api/v1")
	api.POST("/printer_action", printerHandler.PrinterAction)
	api.GET("/printers", printerHandler.ListPrinters)
	api.GET("/printers/:identity/:class/status", printerHandler.PrinterStatus)
	api.POST("/printers/:identity/:class/disconnect", printerHandler.DisconnectPrinter)
	return f
}

func defaultPrinters() map[string]config.PrinterSet {
	return map[string]config.PrinterSet{
		"pos-1": {
			Fiscal:    &model.PrinterConfig{Kind: model.KindSF20TCP, Host: "10.0.0.5", Port: 9100, TimeoutSeconds: 1},
			NonFiscal: &model.PrinterConfig{Kind: model.KindEscposTCP, Host: "10.0.0.6", Port: 9100, TimeoutSeconds: 1},
		},
	}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var response utils.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	}
	return rec, response
}

func TestActionStatusCode(t *testing.T) {
	dispatchErr := func(kind driver.ErrorKind) driver.ActionResult {
		return driver.Failure(driver.NewDispatchError(kind, "pos-1", "status", "x"))
	}
	timeout := driver.Failure(driver.NewTransportError(driver.KindTimeout, "read", "h:1", errors.New("timeout")))

	tests := []struct {
		name   string
		result driver.ActionResult
		want   int
	}{
		{"ok", driver.OK("done", nil), http.StatusOK},
		{"access denied", dispatchErr(driver.KindAccessDenied), http.StatusForbidden},
		{"not found", dispatchErr(driver.KindNotFound), http.StatusNotFound},
		{"unknown action", dispatchErr(driver.KindUnimplementedAction), http.StatusBadRequest},
		{"invalid request", dispatchErr(driver.KindInvalidRequest), http.StatusBadRequest},
		{"fiscal failure", timeout, http.StatusBadGateway},
		{"non-blocking failure", timeout.WithData("non_blocking", true), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionStatusCode(tt.result))
		})
	}
}

func TestPrinterActionStatusMapping(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantKind string
	}{
		{"fiscal timeout", map[string]interface{}{"identity": "pos-1", "action": "status"}, http.StatusBadGateway, string(driver.KindTimeout)},
		{"non-fiscal timeout", map[string]interface{}{"identity": "pos-1", "class": "nonfiscal", "action": "status"}, http.StatusOK, string(driver.KindTimeout)},
		{"unknown identity", map[string]interface{}{"identity": "pos-9", "action": "status"}, http.StatusNotFound, string(driver.KindNotFound)},
		{"unknown action", map[string]interface{}{"identity": "pos-1", "action": "fly"}, http.StatusBadRequest, string(driver.KindUnimplementedAction)},
		{"denied", map[string]interface{}{"identity": "pos-1", "action": "z_report"}, http.StatusForbidden, string(driver.KindAccessDenied)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, response := f.do(t, http.MethodPost, "/api/v1/printer_action", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, response.Success)
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.wantKind, response.Error.Code)
			assert.Equal(t, "req-1", response.RequestID)
		})
	}
}

func TestPrinterActionSuccess(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())
	f.fiscal.status = driver.OK("Printer ready", map[string]interface{}{"state": "init"})

	rec, response := f.do(t, http.MethodPost, "/api/v1/printer_action", map[string]interface{}{
		"identity": "pos-1",
		"action":   "status",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, response.Success)
	assert.Nil(t, response.Error)
	assert.Equal(t, "Printer ready", response.Message)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestPrinterActionValidation(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())

	rec, response := f.do(t, http.MethodPost, "/api/v1/printer_action", map[string]interface{}{"action": "status"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, response.Error)
	assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/printer_action", map[string]interface{}{
		"identity": "pos-1",
		"class":    "kitchen",
		"action":   "status",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrinterPathRoutes(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())
	f.kitchen.status = driver.OK("Printer ready", nil)

	rec, response := f.do(t, http.MethodGet, "/api/v1/printers/pos-1/nonfiscal/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, response.Success)
	assert.True(t, f.kitchen.IsConnected())

	rec, _ = f.do(t, http.MethodGet, "/api/v1/printers/pos-1/kitchen/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, response = f.do(t, http.MethodPost, "/api/v1/printers/pos-1/nonfiscal/disconnect", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, response.Success)
	assert.False(t, f.kitchen.IsConnected())
	assert.Equal(t, 0, f.registry.Len())
}

func TestListPrinters(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())
	f.kitchen.status = driver.OK("Printer ready", nil)
	f.do(t, http.MethodGet, "/api/v1/printers/pos-1/nonfiscal/status", nil)

	rec, response := f.do(t, http.MethodGet, "/api/v1/printers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	printers, ok := response.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, printers, 2)

	fiscal := printers[0].(map[string]interface{})
	assert.Equal(t, "fiscal", fiscal["class"])
	assert.Equal(t, false, fiscal["instantiated"])

	kitchen := printers[1].(map[string]interface{})
	assert.Equal(t, "nonfiscal", kitchen["class"])
	assert.Equal(t, true, kitchen["instantiated"])
	assert.Equal(t, true, kitchen["connected"])
}

func TestHealthChecks(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "printer-service", health.Service)
	assert.Equal(t, float64(2), health.Checks["printers"].Data["configured"])

	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthWithoutPrinters(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEventBusSubscribe(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	events, unsubscribe := bus.Subscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.PublishPrinterEvent(model.NewPrinterEvent(model.EventTypePrinterStatus, "pos-1", model.ClassFiscal, "status"))

	select {
	case event := <-events:
		assert.Equal(t, "pos-1", event.Identity)
		assert.Equal(t, model.EventTypePrinterStatus, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestClientWants(t *testing.T) {
	event := model.NewPrinterEvent(model.EventTypePrinterAction, "pos-1", model.ClassFiscal, "status")

	all := &Client{}
	assert.True(t, all.Wants(event))

	other := &Client{Identity: "bar"}
	assert.False(t, other.Wants(event))

	statusOnly := &Client{Identity: "pos-1"}
	statusOnly.subscribe(string(model.EventTypePrinterStatus))
	assert.False(t, statusOnly.Wants(event))
	statusOnly.subscribe(string(model.EventTypePrinterAction))
	assert.True(t, statusOnly.Wants(event))
	statusOnly.unsubscribe(string(model.EventTypePrinterAction))
	assert.False(t, statusOnly.Wants(event))
}

func readUntil(t *testing.T, conn *websocket.Conn, messageType string) map[string]interface{} {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var message map[string]interface{}
		require.NoError(t, conn.ReadJSON(&message))
		if message["type"] == messageType {
			return message
		}
	}
}

func TestWebSocketEventStream(t *testing.T) {
	f := newHandlerFixture(t, defaultPrinters())
	f.fiscal.status = driver.OK("Printer ready", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.bus.Start(ctx)

	wsHandler := NewWebSocketHandler(f.bus, f.dispatcher, zap.NewNop())
	go wsHandler.Run(ctx)
	require.Eventually(t, func() bool { return f.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.engine.GET("/ws/events", wsHandler.HandleEventConnection)
	server := httptest.NewServer(f.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events?identity=pos-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return wsHandler.GetConnectionStats().TotalConnections == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, wsHandler.GetConnectionStats().ByIdentity["pos-1"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "request_id": "p-1"}))
	pong := readUntil(t, conn, "pong")
	assert.Equal(t, "p-1", pong["request_id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "printer_action",
		"request_id": "a-1",
		"data":       map[string]interface{}{"identity": "pos-1", "action": "status"},
	}))
	result := readUntil(t, conn, "action_result")
	assert.Equal(t, "a-1", result["request_id"])
	data := result["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])

	f.bus.PublishPrinterEvent(model.NewPrinterEvent(model.EventTypePrinterStatus, "bar", model.ClassNonFiscal, "status"))
	f.bus.PublishPrinterEvent(model.NewPrinterEvent(model.EventTypePrinterStatus, "pos-1", model.ClassFiscal, "status"))
	event := readUntil(t, conn, string(model.EventTypePrinterStatus))
	eventData := event["data"].(map[string]interface{})
	assert.Equal(t, "pos-1", eventData["identity"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "launch"}))
	failure := readUntil(t, conn, "error")
	assert.Contains(t, failure["data"].(map[string]interface{})["error"], "unknown message type")
}
