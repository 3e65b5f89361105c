package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/macropad/internal/config"
	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/suggest"
	"github.com/spf13/cobra"
)

// unknownKey explains an unknown config key with suggestions.
func unknownKey(key string) error {
	err := fmt.Errorf("unknown config key: %s", key)
	if hint := suggest.Hint(suggest.Names(key, config.Keys())); hint != "" {
		return fmt.Errorf("%w; %s", err, hint)
	}
	return err
}

func isConfigKey(key string) bool {
	_, err := config.Default().Get(key)
	return err == nil
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage macropad configuration",
	GroupID: "system",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.Save(configPath, config.Default()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		output.Success("wrote %s", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings (file plus environment)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		envErr := cfg.ApplyEnv()

		if jsonOutput(cmd) {
			if err := output.JSON(cfg); err != nil {
				return err
			}
			return envErr
		}

		fmt.Fprintln(cmd.OutOrStdout(), output.Title(configPath))
		for _, key := range config.Keys() {
			v, _ := cfg.Get(key)
			line := fmt.Sprintf("  %-14s = %s", key, v)
			if env := config.EnvName(key); os.Getenv(env) != "" {
				line += output.Subtle("  (from " + env + ")")
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		if envErr != nil {
			output.Warning("%v", envErr)
		}
		if err := cfg.Validate(); err != nil {
			output.Warning("%v", err)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one effective setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isConfigKey(args[0]) {
			return unknownKey(args[0])
		}
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if !isConfigKey(key) {
			return unknownKey(key)
		}
		if err := config.SetValue(configPath, key, val); err != nil {
			return err
		}
		output.Success("%s = %s", key, val)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().Bool("json", false, "JSON output")
}
