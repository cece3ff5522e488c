// internal/cli/printer.go
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	internalDriver "printer-service/internal/driver"
	"printer-service/internal/model"
	"printer-service/internal/service"
)

// NewStatusCommand queries one printer
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query printer status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printerClass := model.PrinterClass(class)
			if !printerClass.Valid() {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid class %q: must be fiscal or nonfiscal", class)}
			}
			return runAction(cmd, rootOpts, printerClass, "status", nil)
		},
	}

	cmd.Flags().StringVar(&class, "class", string(model.ClassFiscal), "printer class (fiscal|nonfiscal)")
	return cmd
}

// NewTestFiscalCommand runs a status round-trip against a fiscal printer
func NewTestFiscalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-fiscal",
		Short: "Check that a fiscal printer answers a status frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, rootOpts, model.ClassFiscal, "status", nil)
		},
	}
}

// NewTestEscposCommand prints a test page on a kitchen printer
func NewTestEscposCommand(rootOpts *RootOptions) *cobra.Command {
	var noCut bool

	cmd := &cobra.Command{
		Use:   "test-escpos",
		Short: "Print a test page on a non-fiscal printer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job := model.TextJob{
				Text:  testPage(time.Now()),
				Align: model.AlignCenter,
				Bold:  true,
			}
			if err := runAction(cmd, rootOpts, model.ClassNonFiscal, "print_text", job); err != nil {
				return err
			}
			if noCut {
				return nil
			}
			return runAction(cmd, rootOpts, model.ClassNonFiscal, "cut_paper", nil)
		},
	}

	cmd.Flags().BoolVar(&noCut, "no-cut", false, "do not cut after the test page")
	return cmd
}

func testPage(now time.Time) string {
	return fmt.Sprintf("PRINTER TEST\n%s\nàèéìòù ÀÈÉ €\n", now.Format("2006-01-02 15:04:05"))
}

// NewComandaCommand prints an order read from a JSON file
func NewComandaCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "comanda",
		Short: "Print a kitchen order from a JSON file",
		Long: `Print a kitchen order (comanda) from a JSON file shaped like the
print_comanda payload: header, order_number, table, time, footer, items.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "failed to read order file", Err: err}
			}
			var order model.Order
			if err := json.Unmarshal(raw, &order); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "invalid order file", Err: err}
			}
			return runAction(cmd, rootOpts, model.ClassNonFiscal, "print_comanda", order)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "order JSON file")
	cmd.MarkFlagRequired("file")
	return cmd
}

// NewZReportCommand runs the end-of-day closing
func NewZReportCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "zreport",
		Short: "Run the fiscal end-of-day closing (Z report)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return &ExitError{Code: ExitCommandError, Message: "a Z report closes the fiscal day; pass --yes to confirm"}
			}
			return runAction(cmd, rootOpts, model.ClassFiscal, "z_report", nil)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the closing")
	return cmd
}

// runAction dispatches one action to the selected printer and prints the result.
// The driver instance is disconnected before returning.
func runAction(cmd *cobra.Command, opts *RootOptions, class model.PrinterClass, action string, payload interface{}) error {
	formatter := opts.formatter(cmd)

	directory, identity, err := opts.directory(class)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "invalid printer selection", Err: err}
	}

	req := service.Request{Identity: identity, Class: class, Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "failed to encode payload", Err: err}
		}
		req.Payload = raw
	}

	logger := opts.logger()
	defer logger.Sync()

	registry := internalDriver.NewRegistry(logger)
	internalDriver.RegisterDefaultDrivers(registry, logger)
	dispatcher := service.NewDispatcher(directory, registry, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.actionDeadline())
	defer cancel()
	defer registry.DisconnectAll(context.Background())

	formatter.VerboseLog("%s -> %s/%s", action, identity, class)
	result, _ := dispatcher.Execute(ctx, req)
	if err := formatter.Result(action, result); err != nil {
		logger.Warn("Failed to write result", zap.Error(err))
	}

	if !result.IsOK() {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%s failed", action), Err: fmt.Errorf("%s", result.Message)}
	}
	return nil
}
