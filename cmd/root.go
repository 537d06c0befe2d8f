package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/midimapper-go/internal/ports"
)

// Version is set at build time.
var Version = "dev"

var (
	flagVerbose bool
	flagDebug   bool
	flagPorts   bool
	flagConfig  string
	flagMapping string
	flagTUI     bool
)

var rootCmd = &cobra.Command{
	Use:   "midimapper <source> <destination>",
	Short: "midimapper — route MIDI from one port to another through an action table",
	Long: `midimapper reads MIDI from the first source whose name contains <source>,
runs mapped notes, programs and controllers through an action table, and relays
everything else unchanged to the first destination containing <destination>.

Prefix either name with "serial:" to use a serial device.`,
	Args:         cobra.RangeArgs(0, 2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPorts {
			printPorts(os.Stdout)
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf("need <source> and <destination> (see --ports)")
		}
		return runRoute(cmd.Context(), args[0], args[1])
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	ports.CloseDriver()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	if errors.Is(err, ports.ErrEndpointNotFound) {
		fmt.Fprintln(os.Stderr)
		printPorts(os.Stderr)
	}
	os.Exit(1)
}

func init() {
	rootCmd.Version = Version
	f := rootCmd.PersistentFlags()
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Log routing decisions")
	f.BoolVar(&flagDebug, "debug", false, "Log everything, with call sites")
	f.StringVarP(&flagConfig, "config", "c", "", "Config file (default ~/.midimapper/config.json)")
	rootCmd.Flags().BoolVar(&flagPorts, "ports", false, "List sources and destinations, then exit")
	rootCmd.Flags().StringVarP(&flagMapping, "mapping", "m", "", "YAML action table (default: router.mapping, else built-in)")
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "Show a live event view")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "debug")
}
