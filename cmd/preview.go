package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/macropad/internal/tui/preview"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Try profiles in a terminal keypad simulator",
	Long: `Runs the device loop against a simulated keypad. Arrow keys move between
keys, enter fires the selected key, tab and shift+tab turn the encoder, b
presses the encoder switch. The macros directory is re-read periodically.`,
	GroupID: "device",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := loadStore(cmd)
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")

		m := preview.NewModel(st, interval, cfg.Brightness)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringP("macros", "m", "", "macros directory (default from config)")
	previewCmd.Flags().Duration("interval", preview.DefaultRefreshInterval, "reload interval")
}
