package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayuer/midimapper-go/internal/mapping"
	"github.com/dayuer/midimapper-go/internal/router"
)

var checkCmd = &cobra.Command{
	Use:   "check [mapping.yaml]",
	Short: "Validate an action table and print it",
	Long:  "Validate an action table file and print its entries. Without a file, prints the built-in table.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := mapping.Options{LongPress: cfg.Router.LongPress()}

	source := "built-in table"
	var table router.Table
	if len(args) == 1 {
		source = args[0]
		table, err = mapping.Load(source, opts)
	} else {
		table, err = mapping.Default(opts)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d entries\n\n", source, len(table))
	fmt.Fprint(cmd.OutOrStdout(), table.Describe())
	return nil
}
