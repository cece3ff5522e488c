package iotproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/pkg/driver"
)

func newProxy(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(ts.URL+"/", time.Second, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestForwardSuccess(t *testing.T) {
	var got Request
	client := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ActionPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result": true, "driver_result": {"status": "ok"}}`))
	})

	result, err := client.Forward(context.Background(), "pos-1", "print_receipt", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)

	assert.True(t, result.IsOK())
	assert.Equal(t, "Printed via IoT", result.Message)
	assert.Equal(t, "via_iot", result.Data["info"])
	details, ok := result.Data["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, details["result"])

	assert.Equal(t, "pos-1", got.PrinterID)
	assert.Equal(t, "print_receipt", got.Action)
	assert.JSONEq(t, `{"text":"hi"}`, string(got.Payload))
}

func TestForwardProxyFailure(t *testing.T) {
	client := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": false, "error": "printer_not_found"}`))
	})

	result, err := client.Forward(context.Background(), "pos-1", "cashbox", nil)
	require.NoError(t, err)
	assert.False(t, result.IsOK())
	assert.Equal(t, "printer_not_found", result.Message)
	assert.Equal(t, driver.KindDelegate, result.ErrorKind)
	assert.Equal(t, "via_iot", result.Data["info"])
}

func TestForwardHTTPError(t *testing.T) {
	client := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Forward(context.Background(), "pos-1", "status", nil)
	require.Error(t, err)
	assert.Equal(t, driver.KindDelegate, driver.KindOf(err))
	assert.True(t, driver.Retryable(err))
}

func TestForwardUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := NewClient(url, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Forward(context.Background(), "pos-1", "status", nil)
	require.Error(t, err)
	assert.True(t, driver.Retryable(err))
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(" ", 0, zap.NewNop())
	assert.Equal(t, driver.KindNotConfigured, driver.KindOf(err))
}
