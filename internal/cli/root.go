// internal/cli/root.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// adhocIdentity names the printer built from --host
const adhocIdentity = "printerctl"

// RootOptions holds the global flags. A printer is addressed either by
// --host (ad-hoc) or by --identity within --config.
type RootOptions struct {
	ConfigFile string
	Identity   string
	Host       string
	Port       int
	Kind       string
	Timeout    int
	Format     string
	Verbose    bool
}

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the printerctl command tree
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "printerctl",
		Short: "Receipt printer diagnostics",
		Long: `Talk to fiscal and kitchen printers directly, without the HTTP service.

Commands go through the same action dispatcher as the service, so a
passing test here means the printer configuration is usable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "service config file (default search path when empty)")
	flags.StringVarP(&opts.Identity, "identity", "i", "", "printer identity from the config file")
	flags.StringVar(&opts.Host, "host", "", "printer host; bypasses the config file")
	flags.IntVar(&opts.Port, "port", 9100, "printer TCP port (with --host)")
	flags.StringVar(&opts.Kind, "kind", "", "printer kind (with --host; class default when empty)")
	flags.IntVar(&opts.Timeout, "timeout", 0, "timeout in seconds (with --host; class default when 0)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log driver traffic to stderr")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTestFiscalCommand(opts))
	cmd.AddCommand(NewTestEscposCommand(opts))
	cmd.AddCommand(NewComandaCommand(opts))
	cmd.AddCommand(NewZReportCommand(opts))
	cmd.AddCommand(NewDiscoverCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := utils.NewLogger(&config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// directory resolves the printer of class the flags point at
func (o *RootOptions) directory(class model.PrinterClass) (service.Directory, string, error) {
	if o.Host != "" {
		printer, err := config.PrinterFromMap(class, o.adhocValues())
		if err != nil {
			return nil, "", err
		}
		set := config.PrinterSet{}
		if class == model.ClassFiscal {
			set.Fiscal = &printer
		} else {
			set.NonFiscal = &printer
		}
		return service.NewConfigDirectory(map[string]config.PrinterSet{adhocIdentity: set}), adhocIdentity, nil
	}

	if o.Identity == "" {
		return nil, "", fmt.Errorf("either --host or --identity is required")
	}
	cfg, err := config.LoadFrom(o.ConfigFile)
	if err != nil {
		return nil, "", err
	}
	directory := service.NewConfigDirectory(cfg.Printers)
	if _, ok := directory.Lookup(o.Identity, class); !ok {
		return nil, "", fmt.Errorf("no %s printer configured for %q", class, o.Identity)
	}
	return directory, o.Identity, nil
}

// adhocValues are the flag overrides on top of the class defaults
func (o *RootOptions) adhocValues() map[string]interface{} {
	values := map[string]interface{}{
		"host": o.Host,
		"port": o.Port,
	}
	if o.Kind != "" {
		values["kind"] = o.Kind
	}
	if o.Timeout > 0 {
		values["timeoutSeconds"] = o.Timeout
	}
	return values
}

// actionDeadline bounds a whole CLI action, connect included
func (o *RootOptions) actionDeadline() time.Duration {
	if o.Timeout > 0 {
		return time.Duration(o.Timeout)*time.Second + 5*time.Second
	}
	return 60 * time.Second
}
