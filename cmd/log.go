package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/macropad/internal/dateparse"
	"github.com/marcus/macropad/internal/journal"
	"github.com/marcus/macropad/internal/output"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commands recorded by serve --journal",
	Long: `Lists the commands the device dispatched, newest first. Times for --since
and --prune accept dates (2026-03-01), durations (2h), days (3d), weeks
(2w), months (1mo), weekday names, today and yesterday.`,
	Example: `  macropad log --failed
  macropad log --since 2h --json
  macropad log --prune 1mo`,
	GroupID: "device",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("journal")
		if path == "" {
			path = cfg.JournalPath
		}
		if path == "" {
			return fmt.Errorf("no journal configured (set journal_path or pass --journal)")
		}
		if _, err := os.Stat(path); err != nil {
			if jsonOutput(cmd) {
				output.JSONError(output.ErrCodeJournalError, err.Error())
			}
			return fmt.Errorf("open journal: %w", err)
		}

		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()

		if prune, _ := cmd.Flags().GetString("prune"); prune != "" {
			cutoff, err := dateparse.ParseSince(prune)
			if err != nil {
				return err
			}
			n, err := j.Prune(cutoff)
			if err != nil {
				return err
			}
			output.Success("pruned %d entries older than %s", n, cutoff.Format("2006-01-02 15:04"))
			return nil
		}

		var f journal.Filter
		f.FailedOnly, _ = cmd.Flags().GetBool("failed")
		f.Limit, _ = cmd.Flags().GetInt("limit")
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			if f.Since, err = dateparse.ParseSince(since); err != nil {
				return err
			}
		}

		entries, err := j.Recent(f)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			if entries == nil {
				entries = []journal.Entry{}
			}
			return output.JSON(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), output.Subtle("no commands recorded"))
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), output.FormatJournalEntry(e))
		}
		if total, err := j.Count(); err == nil && total > len(entries) {
			fmt.Fprintln(cmd.OutOrStdout(), output.Subtle(fmt.Sprintf("%d of %d entries", len(entries), total)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("journal", "", "journal file (default from config)")
	logCmd.Flags().Bool("failed", false, "only failed commands")
	logCmd.Flags().IntP("limit", "n", 20, "maximum entries (0 for all)")
	logCmd.Flags().String("since", "", "only entries after this time")
	logCmd.Flags().String("prune", "", "delete entries older than this time")
	logCmd.Flags().Bool("json", false, "JSON output")
}
