// pkg/driver/types.go
package driver

import (
	"time"
)

// ResultStatus is the coarse outcome of an action
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ActionResult is the normalized contract returned to callers of any driver.
// It hides transport specific error types behind ErrorKind and CanRetry.
type ActionResult struct {
	Status         ResultStatus           `json:"status"`
	Message        string                 `json:"message"`
	CanRetry       bool                   `json:"can_retry"`
	ErrorKind      ErrorKind              `json:"error_kind,omitempty"`
	ResponseTimeMs int64                  `json:"response_time_ms"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// OK builds a successful result
func OK(message string, data map[string]interface{}) ActionResult {
	return ActionResult{
		Status:  StatusOK,
		Message: message,
		Data:    data,
	}
}

// Failure converts err into an error result, keeping its classification
func Failure(err error) ActionResult {
	return FailureWithMessage(err.Error(), err)
}

// FailureWithMessage is Failure with a caller-chosen message
func FailureWithMessage(message string, err error) ActionResult {
	return ActionResult{
		Status:    StatusError,
		Message:   message,
		CanRetry:  Retryable(err),
		ErrorKind: KindOf(err),
	}
}

// IsOK reports whether the result status is ok
func (r ActionResult) IsOK() bool {
	return r.Status == StatusOK
}

// WithData sets a data key, allocating the map when needed
func (r ActionResult) WithData(key string, value interface{}) ActionResult {
	if r.Data == nil {
		r.Data = make(map[string]interface{})
	}
	r.Data[key] = value
	return r
}

// WithDuration records the elapsed round trip
func (r ActionResult) WithDuration(d time.Duration) ActionResult {
	r.ResponseTimeMs = d.Milliseconds()
	return r
}
