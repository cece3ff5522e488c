// internal/cli/discover.go
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"printer-service/internal/config"
	"printer-service/internal/service"
)

// newDiscoveryService is replaced in tests
var newDiscoveryService = service.NewDiscoveryService

// NewDiscoverCommand scans for printers
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		scanType string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan mDNS, serial ports and USB for receipt printers",
		Long: `Scan for receipt printers. With --config, printers that are already
configured are marked with their identity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			discoveryCfg := config.DiscoveryConfig{Service: "_pdl-datastream._tcp", Domain: "local.", Timeout: timeout}
			directory := service.NewConfigDirectory(nil)
			if rootOpts.ConfigFile != "" {
				cfg, err := config.LoadFrom(rootOpts.ConfigFile)
				if err != nil {
					return &ExitError{Code: ExitCommandError, Message: "failed to load config", Err: err}
				}
				discoveryCfg = cfg.Discovery
				directory = service.NewConfigDirectory(cfg.Printers)
			}

			logger := rootOpts.logger()
			defer logger.Sync()

			discoveryService := newDiscoveryService(directory, discoveryCfg, logger)
			formatter.VerboseLog("available scanners: %v", discoveryService.AvailableScanners())

			printers, err := discoveryService.ScanPrinters(cmd.Context(), service.ScanRequest{
				ScanType: scanType,
				Timeout:  timeout,
			})
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "scan failed", Err: err}
			}
			return formatter.Printers(printers)
		},
	}

	cmd.Flags().StringVarP(&scanType, "type", "t", "all", "scan type (all|tcp|serial|usb)")
	cmd.Flags().DurationVar(&timeout, "scan-timeout", 5*time.Second, "scan duration")
	return cmd
}
