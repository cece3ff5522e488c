// internal/driver/sf20/receipt.go
package sf20

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// OpenReceipt opens a fiscal receipt and returns the printer's receipt identifier.
// A zero operatorID uses the configured operator.
func (a *Adapter) OpenReceipt(ctx context.Context, operatorID int) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.openReceipt(ctx, operatorID)
}

// SellItem registers one line on the open receipt
func (a *Adapter) SellItem(ctx context.Context, item model.SaleItem) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.sellItem(ctx, item)
}

// ApplyPayment registers one tender on the open receipt
func (a *Adapter) ApplyPayment(ctx context.Context, payment model.Payment) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.applyPayment(ctx, payment)
}

// Subtotal asks the printer for the running subtotal of the open receipt
func (a *Adapter) Subtotal(ctx context.Context) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := a.requireOpen("subtotal"); err != nil {
		return "", err
	}
	resp, err := a.exchange(ctx, CmdSubtotal, nil)
	if err != nil {
		return "", err
	}
	return responseText(resp.Payload), nil
}

// CloseReceipt finalizes the open receipt and returns its fiscal number
func (a *Adapter) CloseReceipt(ctx context.Context) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.closeReceipt(ctx)
}

// CancelReceipt voids the current receipt. It is sent whatever the local state,
// since the printer may hold a receipt the adapter does not know about.
func (a *Adapter) CancelReceipt(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.cancelReceipt(ctx)
}

// ZReport runs the end-of-day closing
func (a *Adapter) ZReport(ctx context.Context) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.state == StateReceiptOpen {
		return "", driver.NewProtocolError(driver.KindReceiptOpenDuringZReport, "z_report", string(a.state), "")
	}

	resp, err := a.exchange(ctx, CmdZReport, nil)
	a.audit.LogZReport(a.identity, responseText(resp.Payload), err)
	if err != nil {
		return "", err
	}

	if a.state == StateZReportRequired {
		a.setState(StateInit)
	}
	return responseText(resp.Payload), nil
}

func (a *Adapter) openReceipt(ctx context.Context, operatorID int) (string, error) {
	if a.state == StateReceiptOpen {
		return "", driver.NewProtocolError(driver.KindAlreadyOpen, "open_receipt", string(a.state), "")
	}
	if operatorID == 0 {
		operatorID = a.operatorID
	}

	payload, err := OpenReceiptPayload(operatorID)
	if err != nil {
		return "", err
	}

	resp, err := a.exchange(ctx, CmdOpenReceipt, payload)
	if err != nil {
		return "", err
	}

	a.setState(StateReceiptOpen)
	return responseText(resp.Payload), nil
}

func (a *Adapter) sellItem(ctx context.Context, item model.SaleItem) error {
	if err := a.requireOpen("sell_item"); err != nil {
		return err
	}

	payload, err := SellItemPayload(item, a.department)
	if err != nil {
		return err
	}

	_, err = a.exchange(ctx, CmdSellItem, payload)
	return err
}

func (a *Adapter) applyPayment(ctx context.Context, payment model.Payment) error {
	if err := a.requireOpen("apply_payment"); err != nil {
		return err
	}

	payload, err := PaymentPayload(payment)
	if err != nil {
		return err
	}

	_, err = a.exchange(ctx, CmdPayment, payload)
	return err
}

func (a *Adapter) closeReceipt(ctx context.Context) (string, error) {
	if err := a.requireOpen("close_receipt"); err != nil {
		return "", err
	}

	resp, err := a.exchange(ctx, CmdCloseReceipt, nil)
	if err != nil {
		return "", err
	}

	a.setState(StateReceiptClosed)
	return FiscalNumber(resp.Payload), nil
}

func (a *Adapter) cancelReceipt(ctx context.Context) error {
	if _, err := a.exchange(ctx, CmdCancel, nil); err != nil {
		return err
	}
	a.setState(StateInit)
	return nil
}

// PrintReceipt runs open, every sale line, every payment and close as one sequence
// under the adapter lock.
//
// With fail-safe on, failing lines and payments are skipped and recorded, and a
// failing close still reports ok with fail_safe_triggered so the sale is not
// blocked. With fail-safe off, the first failure cancels the receipt once and
// the result names the failing step.
func (a *Adapter) PrintReceipt(ctx context.Context, payload model.ReceiptPayload) driver.ActionResult {
	start := time.Now()

	a.mutex.Lock()
	defer a.mutex.Unlock()

	result := a.printReceipt(ctx, payload.Receipt)
	return result.WithDuration(time.Since(start))
}

func (a *Adapter) printReceipt(ctx context.Context, receipt model.Receipt) driver.ActionResult {
	failSafe := a.cfg.FailSafe

	receiptID, err := a.openReceipt(ctx, receipt.OperatorID)
	if err != nil {
		return driver.FailureWithMessage(fmt.Sprintf("failed to open receipt: %v", err), err)
	}

	var skippedLines, skippedPayments []map[string]interface{}

	for i, line := range receipt.Lines {
		err := a.sellItem(ctx, line)
		if err == nil {
			continue
		}
		if !failSafe {
			msg := fmt.Sprintf("failed to register line %d (%s): %v", i+1, line.Description, err)
			return a.abortReceipt(ctx, msg, err).
				WithData("failed_line", i+1).
				WithData("failed_step", "sell_item")
		}
		a.logger.Warn("Skipping receipt line",
			zap.Int("line", i+1),
			zap.String("description", line.Description),
			zap.Error(err),
		)
		skippedLines = append(skippedLines, skipped(i+1, line.Description, err))
	}

	for i, payment := range receipt.Payments {
		err := a.applyPayment(ctx, payment)
		if err == nil {
			continue
		}
		if !failSafe {
			msg := fmt.Sprintf("failed to apply payment %d (%s): %v", i+1, payment.Method, err)
			return a.abortReceipt(ctx, msg, err).
				WithData("failed_payment", i+1).
				WithData("failed_step", "apply_payment")
		}
		a.logger.Warn("Skipping payment",
			zap.Int("payment", i+1),
			zap.String("method", string(payment.Method)),
			zap.Error(err),
		)
		skippedPayments = append(skippedPayments, skipped(i+1, string(payment.Method), err))
	}

	fiscalNumber, err := a.closeReceipt(ctx)
	if err != nil {
		if !failSafe {
			return a.abortReceipt(ctx, fmt.Sprintf("failed to close receipt: %v", err), err).
				WithData("failed_step", "close_receipt")
		}
		a.logger.Error("Receipt close failed, reporting soft success", zap.Error(err))
		a.audit.LogReceiptClosed(a.identity, "", len(receipt.Lines), len(receipt.Payments), true)

		result := driver.OK("Receipt sent, close not confirmed by printer", map[string]interface{}{
			"receipt_id":          receiptID,
			"fail_safe_triggered": true,
			"close_error":         err.Error(),
		})
		return withSkipped(result, skippedLines, skippedPayments)
	}

	triggered := len(skippedLines) > 0 || len(skippedPayments) > 0
	a.audit.LogReceiptClosed(a.identity, fiscalNumber, len(receipt.Lines), len(receipt.Payments), triggered)

	result := driver.OK("Fiscal receipt printed", map[string]interface{}{
		"receipt_id":          receiptID,
		"fiscal_number":       fiscalNumber,
		"fail_safe_triggered": triggered,
	})
	return withSkipped(result, skippedLines, skippedPayments)
}

// abortReceipt cancels the receipt exactly once and builds the failure result
func (a *Adapter) abortReceipt(ctx context.Context, msg string, cause error) driver.ActionResult {
	result := driver.FailureWithMessage(msg, cause)

	if err := a.cancelReceipt(ctx); err != nil {
		a.logger.Error("Failed to cancel receipt after error", zap.Error(err))
		result = result.WithData("cancelled", false).WithData("cancel_error", err.Error())
	} else {
		result = result.WithData("cancelled", true)
	}

	a.audit.LogReceiptCancelled(a.identity, msg)
	return result
}

func skipped(index int, label string, err error) map[string]interface{} {
	return map[string]interface{}{
		"index": index,
		"item":  label,
		"error": err.Error(),
	}
}

func withSkipped(result driver.ActionResult, lines, payments []map[string]interface{}) driver.ActionResult {
	if len(lines) > 0 {
		result = result.WithData("skipped_lines", lines)
	}
	if len(payments) > 0 {
		result = result.WithData("skipped_payments", payments)
	}
	return result
}
