// internal/cli/output.go
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"printer-service/internal/service"
	"printer-service/pkg/driver"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the printer refused or failed the action
	ExitCommandError = 2 // bad flags or configuration
)

// ExitError carries the process exit code of a failed command
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter renders command results as text or JSON
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON output envelope
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// Result prints one action result
func (f *OutputFormatter) Result(action string, result driver.ActionResult) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: string(result.Status), Data: result})
	}

	mark := "✓"
	if !result.IsOK() {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s %s: %s (%d ms)\n", mark, action, result.Message, result.ResponseTimeMs)
	if result.ErrorKind != "" {
		fmt.Fprintf(f.Writer, "  error_kind: %s (retryable: %t)\n", result.ErrorKind, result.CanRetry)
	}

	keys := make([]string, 0, len(result.Data))
	for key := range result.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(f.Writer, "  %s: %v\n", key, result.Data[key])
	}
	return nil
}

// Printers prints discovery results
func (f *OutputFormatter) Printers(printers []*service.DiscoveredPrinter) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: printers})
	}

	if len(printers) == 0 {
		fmt.Fprintln(f.Writer, "No printers found")
		return nil
	}
	fmt.Fprintf(f.Writer, "Found %d printer(s)\n", len(printers))
	for _, printer := range printers {
		fmt.Fprintf(f.Writer, "  %-28s %-12s %s", printer.Key(), printer.SuggestedKind, printer.Name)
		if printer.ConfiguredAs != "" {
			fmt.Fprintf(f.Writer, " [configured as %s]", printer.ConfiguredAs)
		}
		fmt.Fprintln(f.Writer)
	}
	return nil
}

// VerboseLog writes to ErrWriter in verbose mode
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
