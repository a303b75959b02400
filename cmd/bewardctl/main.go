// Bewardctl configures Beward door intercoms over their CGI interface.
//
// It reads and writes module parameters, dumps and restores whole panel
// configurations, manages the RFID/MIFARE key database and runs device
// commands such as restart or firmware upgrade. Every command accepts a
// list of hosts or networks and runs as a fleet sweep.
//
// Usage:
//
//	bewardctl [command] [flags]
//
// See 'bewardctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beward-tools/bewardctl/internal/logging"
	"github.com/beward-tools/bewardctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bewardctl",
	Short: "Beward intercom configuration utility",
	Long: `A command line utility for configuring Beward door intercoms.

Reads and writes CGI module parameters, dumps and restores panel
configurations, manages RFID and MIFARE keys and runs device commands.
Targets are given with --host (addresses, comma lists or CIDR networks)
or --targets (a file with one target per line). Without either, the
networks of the configuration file are swept.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	registerGlobalFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), version.Get())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bewardctl %s\n", version.Full())
		return nil
	},
}
