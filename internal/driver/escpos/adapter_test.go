package escpos

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

func testOrder() *model.Order {
	return &model.Order{
		OrderNumber: "12",
		Items:       []model.OrderItem{{Description: "Carbonara", Quantity: decimal.NewFromInt(1)}},
	}
}

func TestConnectSendsInitSequence(t *testing.T) {
	link := &recordingLink{}
	adapter, err := NewAdapter("kitchen-1", model.PrinterConfig{Kind: model.KindEscposTCP, CodePage: "cp1252"}, zap.NewNop(), WithLink(link))
	require.NoError(t, err)
	assert.False(t, adapter.IsConnected())

	require.NoError(t, adapter.Connect(context.Background()))
	assert.True(t, adapter.IsConnected())
	require.Len(t, link.writes, 1)
	assert.Equal(t, []byte{0x1B, 0x40, 0x1B, 0x74, 16}, link.writes[0])
	assert.Equal(t, defaultWidth, adapter.Width())
}

func TestNewAdapterRejectsUnknownCodePage(t *testing.T) {
	_, err := NewAdapter("kitchen-1", model.PrinterConfig{Kind: model.KindEscposTCP, CodePage: "klingon"}, zap.NewNop(), WithLink(&recordingLink{}))
	require.Error(t, err)
	assert.Equal(t, driver.KindInvalidRange, driver.KindOf(err))
}

func TestConnectFailure(t *testing.T) {
	link := &recordingLink{openErr: errors.New("dial tcp: connection refused")}
	adapter, err := NewAdapter("kitchen-1", model.PrinterConfig{Kind: model.KindEscposTCP}, zap.NewNop(), WithLink(link))
	require.NoError(t, err)

	err = adapter.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, driver.Retryable(err))
	assert.False(t, adapter.IsConnected())
}

func TestOperationsRequireConnect(t *testing.T) {
	adapter, err := NewAdapter("kitchen-1", model.PrinterConfig{Kind: model.KindEscposTCP}, zap.NewNop(), WithLink(&recordingLink{}))
	require.NoError(t, err)
	ctx := context.Background()

	for name, op := range map[string]func() error{
		"comanda": func() error { return adapter.PrintComanda(ctx, *testOrder(), true, true) },
		"text":    func() error { return adapter.PrintText(ctx, model.TextJob{Text: "x"}) },
		"cut":     func() error { return adapter.CutPaper(ctx, true) },
		"drawer":  func() error { return adapter.OpenDrawer(ctx) },
		"feed":    func() error { return adapter.LineFeed(ctx, 2) },
	} {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.Equal(t, driver.KindNotConnected, driver.KindOf(err))
		})
	}
}

func TestDisconnectClearsReady(t *testing.T) {
	adapter, _ := newTestAdapter(t, model.PrinterConfig{})
	ctx := context.Background()

	require.NoError(t, adapter.Disconnect(ctx))
	assert.False(t, adapter.IsConnected())
	assert.Equal(t, driver.KindNotConnected, driver.KindOf(adapter.CutPaper(ctx, false)))

	require.NoError(t, adapter.Connect(ctx))
	assert.NoError(t, adapter.CutPaper(ctx, false))
}

func TestPrintComandaOptionalCutAndDrawer(t *testing.T) {
	ctx := context.Background()

	adapter, link := newTestAdapter(t, model.PrinterConfig{})
	require.NoError(t, adapter.PrintComanda(ctx, *testOrder(), false, false))
	assert.Len(t, link.sent(), 1)

	adapter, link = newTestAdapter(t, model.PrinterConfig{})
	require.NoError(t, adapter.PrintComanda(ctx, *testOrder(), true, true))
	sent := link.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, ESC_POS_COMMANDS.CUT_PARTIAL, sent[1])
	assert.Equal(t, ESC_POS_COMMANDS.DRAWER_KICK_PIN2, sent[2])
}

func TestSimpleCommands(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})
	ctx := context.Background()

	require.NoError(t, adapter.CutPaper(ctx, false))
	require.NoError(t, adapter.CutPaper(ctx, true))
	require.NoError(t, adapter.OpenDrawer(ctx))
	require.NoError(t, adapter.LineFeed(ctx, 3))

	assert.Equal(t, [][]byte{
		{0x1D, 0x56, 0x00},
		{0x1D, 0x56, 0x01},
		{0x1B, 0x70, 0x00, 0x19, 0x19},
		{'\n', '\n', '\n'},
	}, link.sent())
}

func TestLineFeedRange(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})

	for _, n := range []int{0, -1, 256} {
		err := adapter.LineFeed(context.Background(), n)
		require.Error(t, err, "lines=%d", n)
		assert.Equal(t, driver.KindInvalidRange, driver.KindOf(err))
	}
	assert.Empty(t, link.sent())
}

func TestSendFailureIsTransportError(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})
	link.failWrites(fmt.Errorf("write: %w", os.ErrDeadlineExceeded))

	err := adapter.PrintText(context.Background(), model.TextJob{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, driver.KindTimeout, driver.KindOf(err))
	assert.True(t, driver.Retryable(err))
}

func TestPrintReceiptOrderUsesConfiguredCut(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{AutoCut: true})

	result := adapter.PrintReceipt(context.Background(), model.ReceiptPayload{Order: testOrder(), Text: "ignored"})
	require.True(t, result.IsOK(), result.Message)
	assert.Equal(t, "Comanda printed", result.Message)

	sent := link.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, string(sent[0]), "Carbonara")
	assert.NotContains(t, string(sent[0]), "ignored")
	assert.Equal(t, ESC_POS_COMMANDS.CUT_PARTIAL, sent[1])
}

func TestPrintReceiptRaw(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})
	raw := []byte{0x1B, 0x40, 'h', 'i', '\n'}

	result := adapter.PrintReceipt(context.Background(), model.ReceiptPayload{
		Raw: base64.StdEncoding.EncodeToString(raw),
	})
	require.True(t, result.IsOK(), result.Message)
	assert.Equal(t, [][]byte{raw, ESC_POS_COMMANDS.CUT_FULL}, link.sent())
}

func TestPrintReceiptText(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})

	result := adapter.PrintReceipt(context.Background(), model.ReceiptPayload{Text: "Table 4 ready"})
	require.True(t, result.IsOK(), result.Message)
	assert.Equal(t, [][]byte{[]byte("Table 4 ready\n"), ESC_POS_COMMANDS.CUT_FULL}, link.sent())
}

func TestPrintReceiptInvalidPayloads(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})
	ctx := context.Background()

	result := adapter.PrintReceipt(ctx, model.ReceiptPayload{})
	assert.False(t, result.IsOK())
	assert.Equal(t, driver.KindNotConfigured, result.ErrorKind)

	result = adapter.PrintReceipt(ctx, model.ReceiptPayload{Raw: "%%%"})
	assert.False(t, result.IsOK())
	assert.Equal(t, driver.KindInvalidRange, result.ErrorKind)

	result = adapter.PrintReceipt(ctx, model.ReceiptPayload{Image: base64.StdEncoding.EncodeToString([]byte("not an image"))})
	assert.False(t, result.IsOK())
	assert.Equal(t, driver.KindInvalidRange, result.ErrorKind)

	assert.Empty(t, link.sent())
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: 0xFF})
		}
	}
	for y := 0; y < height; y++ {
		img.SetGray(0, y, color.Gray{Y: 0})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRasterImage(t *testing.T) {
	raster, err := RasterImage(testPNG(t, 10, 2), 576)
	require.NoError(t, err)

	// GS v 0, 2 bytes per row, 2 rows
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 2, 0, 2, 0}, raster[:8])
	assert.Equal(t, []byte{0x80, 0x00, 0x80, 0x00}, raster[8:])
}

func TestRasterImageScalesDown(t *testing.T) {
	raster, err := RasterImage(testPNG(t, 800, 100), 384)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 48, 0, 48, 0}, raster[:8])
	assert.Len(t, raster, 8+48*48)
}

func TestPrintReceiptImage(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})

	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 8, 1))
	result := adapter.PrintReceipt(context.Background(), model.ReceiptPayload{Image: encoded})
	require.True(t, result.IsOK(), result.Message)

	sent := link.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 1, 0, 1, 0, 0x80}, sent[0])
	assert.Equal(t, ESC_POS_COMMANDS.CUT_FULL, sent[1])
}

func TestStatus(t *testing.T) {
	adapter, _ := newTestAdapter(t, model.PrinterConfig{Host: "10.1.1.1", Port: 9100, Width: 48})
	ctx := context.Background()

	result := adapter.Status(ctx)
	require.True(t, result.IsOK())
	assert.Equal(t, true, result.Data["responsive"])
	assert.Equal(t, 48, result.Data["width"])
	assert.Equal(t, "10.1.1.1", result.Data["host"])

	require.NoError(t, adapter.Disconnect(ctx))
	result = adapter.Status(ctx)
	assert.False(t, result.IsOK())
	assert.Equal(t, driver.KindNotConnected, result.ErrorKind)
	assert.Equal(t, false, result.Data["ready"])
}

func TestOpenCashbox(t *testing.T) {
	adapter, link := newTestAdapter(t, model.PrinterConfig{})

	result := adapter.OpenCashbox(context.Background())
	require.True(t, result.IsOK())
	assert.Equal(t, "drawer_opened", result.Data["info"])
	assert.Equal(t, [][]byte{ESC_POS_COMMANDS.DRAWER_KICK_PIN2}, link.sent())
}
