// pkg/driver/interfaces.go
package driver

import (
	"context"

	"printer-service/internal/model"
)

// PrinterDriver is the capability set shared by every printer kind
type PrinterDriver interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	// Driver information
	Kind() model.PrinterKind

	// Actions
	PrintReceipt(ctx context.Context, payload model.ReceiptPayload) ActionResult
	OpenCashbox(ctx context.Context) ActionResult
	Status(ctx context.Context) ActionResult
}

// FiscalDriver adds the fiscal receipt lifecycle
type FiscalDriver interface {
	PrinterDriver

	OpenReceipt(ctx context.Context, operatorID int) (string, error)
	SellItem(ctx context.Context, item model.SaleItem) error
	ApplyPayment(ctx context.Context, payment model.Payment) error
	Subtotal(ctx context.Context) (string, error)
	CloseReceipt(ctx context.Context) (string, error)
	CancelReceipt(ctx context.Context) error
	ZReport(ctx context.Context) (string, error)
}

// DocumentDriver adds the non-fiscal document operations
type DocumentDriver interface {
	PrinterDriver

	PrintComanda(ctx context.Context, order model.Order, autoCut, openDrawer bool) error
	PrintText(ctx context.Context, job model.TextJob) error
	CutPaper(ctx context.Context, partial bool) error
	OpenDrawer(ctx context.Context) error
	LineFeed(ctx context.Context, lines int) error
}
