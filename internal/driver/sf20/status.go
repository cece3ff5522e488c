// internal/driver/sf20/status.go
package sf20

import (
	"context"
	"strconv"
	"strings"
	"time"

	"printer-service/pkg/driver"
)

// StatusReport is the best-effort result of a status query
type StatusReport struct {
	State         State         `json:"state"`
	Ready         bool          `json:"ready"`
	ErrorCode     string        `json:"error_code,omitempty"`
	ReceiptsToday int           `json:"receipts_today"`
	ResponseTime  time.Duration `json:"response_time"`
	Raw           string        `json:"raw,omitempty"`

	// Err is why State is unknown, nil otherwise
	Err error `json:"-"`
}

// QueryStatus asks the printer for its state. It never fails: a transport or
// frame failure, or a payload it cannot read, yields state unknown and
// ready=false and leaves the stored state alone. A recognized status becomes
// the stored state.
func (a *Adapter) QueryStatus(ctx context.Context) StatusReport {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	start := time.Now()
	resp, err := a.exchange(ctx, CmdStatus, nil)
	elapsed := time.Since(start)

	if err != nil {
		return StatusReport{State: StateUnknown, ResponseTime: elapsed, Err: err}
	}

	report, ok := ParseStatus(resp.Payload)
	report.ResponseTime = elapsed
	if !ok {
		report.Err = driver.NewProtocolError(driver.KindUnknownResponse, "status", string(a.state), report.Raw)
		return report
	}

	a.setState(report.State)
	return report
}

// Status wraps QueryStatus into an ActionResult
func (a *Adapter) Status(ctx context.Context) driver.ActionResult {
	report := a.QueryStatus(ctx)

	var result driver.ActionResult
	if report.Err != nil {
		result = driver.FailureWithMessage("Fiscal printer status unavailable: "+report.Err.Error(), report.Err)
	} else {
		result = driver.OK("Fiscal printer status: "+string(report.State), nil)
	}

	result = result.
		WithData("state", string(report.State)).
		WithData("ready", report.Ready).
		WithData("receipts_today", report.ReceiptsToday).
		WithDuration(report.ResponseTime)
	if report.ErrorCode != "" {
		result = result.WithData("error_code", report.ErrorCode)
	}
	if report.Raw != "" {
		result = result.WithData("raw", report.Raw)
	}
	return result
}

// ParseStatus reads a status payload of the form TOKEN[;receipts_today].
// ok is false when no known token is present.
func ParseStatus(payload []byte) (StatusReport, bool) {
	text := responseText(payload)
	report := StatusReport{State: StateUnknown, Raw: text}

	token := text
	if idx := strings.IndexByte(text, ';'); idx >= 0 {
		token = text[:idx]
		if n, err := strconv.Atoi(strings.TrimSpace(text[idx+1:])); err == nil && n >= 0 {
			report.ReceiptsToday = n
		}
	}
	token = strings.TrimSpace(token)

	switch {
	case strings.Contains(token, "READY"):
		report.State, report.Ready = StateReceiptClosed, true
	case strings.Contains(token, "RECEIPT_OPEN"):
		report.State, report.Ready = StateReceiptOpen, true
	case strings.Contains(token, "Z_REQUIRED"):
		report.State = StateZReportRequired
	case strings.Contains(token, "MEMORY_FULL"):
		report.State = StateMemoryFull
	case strings.Contains(token, "ERROR"):
		report.State = StateError
		report.ErrorCode = errorCode(token)
	default:
		return report, false
	}
	return report, true
}

// errorCode returns what follows ERROR, e.g. "E42" for "ERROR:E42"
func errorCode(token string) string {
	idx := strings.Index(token, "ERROR")
	code := strings.TrimLeft(token[idx+len("ERROR"):], " :=-")
	if code == "" {
		return "ERROR"
	}
	return code
}
