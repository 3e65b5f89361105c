package cmd

import (
	"fmt"
	"runtime"

	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version",
	GroupID: "system",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Fprint(cmd.OutOrStdout(), versionStr)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "macropad version %s\n", versionStr)
		if version.IsDevelopmentVersion(versionStr) {
			fmt.Fprintln(cmd.OutOrStdout(), output.Subtle("development build"))
		}
		fmt.Fprintln(cmd.OutOrStdout(), output.Subtle(fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "print only the version")
}
