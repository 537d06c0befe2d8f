package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayuer/midimapper-go/internal/keystroke"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List key and modifier names usable in keystroke actions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Keys:")
		for _, line := range wrap(keystroke.KeyNames(), 72) {
			fmt.Fprintln(w, "  "+line)
		}
		fmt.Fprintln(w, "\nModifiers:")
		fmt.Fprintln(w, "  "+strings.Join(keystroke.ModifierNames(), " "))
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

// wrap joins words into lines no longer than width.
func wrap(words []string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
