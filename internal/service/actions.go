// internal/service/actions.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

type actionScope int

const (
	scopeAny actionScope = iota
	scopeFiscal
	scopeDocument
)

type actionFunc func(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult

// actionDef describes one entry of the action table.
// forwardable actions go to the IoT proxy for use_proxy printers; offline
// actions run even when connecting failed; local actions never touch a driver.
type actionDef struct {
	scope       actionScope
	forwardable bool
	offline     bool
	run         actionFunc
	local       func(ctx context.Context, disp *Dispatcher, req Request, class model.PrinterClass) driver.ActionResult
}

var actions = map[string]actionDef{
	// Shared
	"print_receipt": {scope: scopeAny, forwardable: true, run: printReceipt},
	"cashbox":       {scope: scopeAny, forwardable: true, run: openCashbox},
	"status":        {scope: scopeAny, forwardable: true, offline: true, run: printerStatus},
	"disconnect":    {scope: scopeAny, local: disconnectPrinter},

	// Fiscal receipt lifecycle
	"open_receipt":   {scope: scopeFiscal, run: fiscalAction(openReceipt)},
	"sell_item":      {scope: scopeFiscal, run: fiscalAction(sellItem)},
	"apply_payment":  {scope: scopeFiscal, run: fiscalAction(applyPayment)},
	"subtotal":       {scope: scopeFiscal, run: fiscalAction(subtotal)},
	"close_receipt":  {scope: scopeFiscal, run: fiscalAction(closeReceipt)},
	"cancel_receipt": {scope: scopeFiscal, run: fiscalAction(cancelReceipt)},
	"z_report":       {scope: scopeFiscal, run: fiscalAction(zReport)},

	// Kitchen and bar documents
	"print_comanda": {scope: scopeDocument, run: documentAction(printComanda)},
	"print_text":    {scope: scopeDocument, run: documentAction(printText)},
	"cut_paper":     {scope: scopeDocument, run: documentAction(cutPaper)},
	"line_feed":     {scope: scopeDocument, run: documentAction(lineFeed)},
}

// decodePayload unmarshals the request payload into v. An absent payload leaves v untouched.
func decodePayload(req Request, v interface{}) error {
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		return driver.NewDispatchError(driver.KindInvalidRequest, req.Identity, req.Action, err.Error())
	}
	return nil
}

func resultOf(err error, message string, data map[string]interface{}) driver.ActionResult {
	if err != nil {
		return driver.Failure(err)
	}
	return driver.OK(message, data)
}

func unsupported(d driver.PrinterDriver, req Request) driver.ActionResult {
	return dispatchFailure(driver.KindUnimplementedAction, req, fmt.Sprintf("not supported by %s printers", d.Kind()))
}

func fiscalAction(fn func(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult) actionFunc {
	return func(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
		fd, ok := d.(driver.FiscalDriver)
		if !ok {
			return unsupported(d, req)
		}
		return fn(ctx, fd, req)
	}
}

func documentAction(fn func(ctx context.Context, dd driver.DocumentDriver, cfg model.PrinterConfig, req Request) driver.ActionResult) actionFunc {
	return func(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
		dd, ok := d.(driver.DocumentDriver)
		if !ok {
			return unsupported(d, req)
		}
		return fn(ctx, dd, cfg, req)
	}
}

func printReceipt(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	var payload model.ReceiptPayload
	if err := decodePayload(req, &payload); err != nil {
		return driver.Failure(err)
	}
	return d.PrintReceipt(ctx, payload)
}

func openCashbox(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	return d.OpenCashbox(ctx)
}

func printerStatus(ctx context.Context, d driver.PrinterDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	return d.Status(ctx)
}

func disconnectPrinter(ctx context.Context, disp *Dispatcher, req Request, class model.PrinterClass) driver.ActionResult {
	if err := disp.registry.Disconnect(ctx, req.Identity, class); err != nil {
		return driver.Failure(err)
	}
	return driver.OK("Printer disconnected", nil)
}

func openReceipt(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	var payload struct {
		OperatorID int `json:"operator_id"`
	}
	if err := decodePayload(req, &payload); err != nil {
		return driver.Failure(err)
	}
	receiptID, err := fd.OpenReceipt(ctx, payload.OperatorID)
	return resultOf(err, "Receipt opened", map[string]interface{}{"receipt_id": receiptID})
}

func sellItem(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	var item model.SaleItem
	if err := decodePayload(req, &item); err != nil {
		return driver.Failure(err)
	}
	return resultOf(fd.SellItem(ctx, item), "Item registered", nil)
}

func applyPayment(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	var payment model.Payment
	if err := decodePayload(req, &payment); err != nil {
		return driver.Failure(err)
	}
	return resultOf(fd.ApplyPayment(ctx, payment), "Payment applied", nil)
}

func subtotal(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	text, err := fd.Subtotal(ctx)
	return resultOf(err, "Subtotal printed", map[string]interface{}{"subtotal": text})
}

func closeReceipt(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	fiscalNumber, err := fd.CloseReceipt(ctx)
	return resultOf(err, "Receipt closed", map[string]interface{}{"fiscal_number": fiscalNumber})
}

func cancelReceipt(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	return resultOf(fd.CancelReceipt(ctx), "Receipt cancelled", nil)
}

func zReport(ctx context.Context, fd driver.FiscalDriver, req Request) driver.ActionResult {
	text, err := fd.ZReport(ctx)
	return resultOf(err, "Z report completed", map[string]interface{}{"result": text})
}

func printComanda(ctx context.Context, dd driver.DocumentDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	var payload struct {
		model.Order
		AutoCut    *bool `json:"auto_cut,omitempty"`
		OpenDrawer *bool `json:"open_drawer,omitempty"`
	}
	if err := decodePayload(req, &payload); err != nil {
		return driver.Failure(err)
	}

	autoCut, openDrawer := cfg.AutoCut, cfg.AutoOpenDrawer
	if payload.AutoCut != nil {
		autoCut = *payload.AutoCut
	}
	if payload.OpenDrawer != nil {
		openDrawer = *payload.OpenDrawer
	}

	err := dd.PrintComanda(ctx, payload.Order, autoCut, openDrawer)
	return resultOf(err, "Comanda printed", map[string]interface{}{"items": len(payload.Items)})
}

func printText(ctx context.Context, dd driver.DocumentDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	var job model.TextJob
	if err := decodePayload(req, &job); err != nil {
		return driver.Failure(err)
	}
	return resultOf(dd.PrintText(ctx, job), "Text printed", nil)
}

func cutPaper(ctx context.Context, dd driver.DocumentDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	var payload struct {
		Partial bool `json:"partial"`
	}
	if err := decodePayload(req, &payload); err != nil {
		return driver.Failure(err)
	}
	return resultOf(dd.CutPaper(ctx, payload.Partial), "Paper cut", nil)
}

func lineFeed(ctx context.Context, dd driver.DocumentDriver, cfg model.PrinterConfig, req Request) driver.ActionResult {
	payload := struct {
		Lines int `json:"lines"`
	}{Lines: 1}
	if err := decodePayload(req, &payload); err != nil {
		return driver.Failure(err)
	}
	return resultOf(dd.LineFeed(ctx, payload.Lines), "Paper fed", map[string]interface{}{"lines": payload.Lines})
}
