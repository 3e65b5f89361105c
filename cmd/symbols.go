package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/symbol"
	"github.com/spf13/cobra"
)

// symbolsMarkdown renders the keycode and consumer tables, keeping names
// that contain filter (case-insensitive).
func symbolsMarkdown(filter string, keys, consumer bool) string {
	match := func(names []string) []string {
		if filter == "" {
			return names
		}
		f := strings.ToUpper(filter)
		return slices.DeleteFunc(slices.Clone(names), func(n string) bool { return !strings.Contains(n, f) })
	}

	var sections []string
	if keys {
		sections = append(sections, output.SymbolTable("Keycodes", match(symbol.KeycodeNames()), symbol.Keycode))
	}
	if consumer {
		sections = append(sections, output.SymbolTable("Consumer controls", match(symbol.ConsumerNames()), symbol.ConsumerCode))
	}
	return strings.Join(sections, "\n")
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [filter]",
	Short: "List key and consumer-control names usable in records",
	Long: `Lists the symbolic names a record's "command" may use. Key names press a
key (negative codes release it); names inside a nested list are consumer
controls such as media keys.`,
	Example: `  macropad symbols
  macropad symbols vol --consumer`,
	GroupID: "profiles",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter string
		if len(args) == 1 {
			filter = args[0]
		}
		keys, _ := cmd.Flags().GetBool("keys")
		consumer, _ := cmd.Flags().GetBool("consumer")
		if !keys && !consumer {
			keys, consumer = true, true
		}

		if jsonOutput(cmd) {
			table := map[string]map[string]int{}
			if keys {
				table["keycodes"] = symbolMap(filter, symbol.KeycodeNames(), symbol.Keycode)
			}
			if consumer {
				table["consumer"] = symbolMap(filter, symbol.ConsumerNames(), symbol.ConsumerCode)
			}
			return output.JSON(table)
		}

		rendered, err := output.RenderMarkdown(symbolsMarkdown(filter, keys, consumer))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func symbolMap(filter string, names []string, lookup func(string) (int, bool)) map[string]int {
	f := strings.ToUpper(filter)
	m := make(map[string]int, len(names))
	for _, n := range names {
		if !strings.Contains(n, f) {
			continue
		}
		if code, ok := lookup(n); ok {
			m[n] = code
		}
	}
	return m
}

func init() {
	rootCmd.AddCommand(symbolsCmd)

	symbolsCmd.Flags().Bool("keys", false, "only keycodes")
	symbolsCmd.Flags().Bool("consumer", false, "only consumer controls")
	symbolsCmd.Flags().Bool("json", false, "JSON output")
}
