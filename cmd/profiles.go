package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/marcus/macropad/internal/config"
	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/store"
	"github.com/marcus/macropad/internal/suggest"
	"github.com/spf13/cobra"
)

// loadStore reads the macros directory named by --macros or the config.
func loadStore(cmd *cobra.Command) (*config.Config, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if dir, _ := cmd.Flags().GetString("macros"); dir != "" {
		cfg.MacrosDir = dir
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	st, err := store.Load(cfg.MacrosDir,
		store.WithOptions(profile.Options{SoundsDir: cfg.SoundsDir}),
		store.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// findProfile looks up name and explains a miss with suggestions.
func findProfile(st *store.Store, name string) (*profile.Profile, error) {
	if p, ok := st.Find(name); ok {
		return p, nil
	}
	err := fmt.Errorf("%w: no profile named %q", profile.ErrNotFound, name)
	if hint := suggest.Hint(suggest.Names(name, slices.Collect(st.Names()))); hint != "" {
		err = fmt.Errorf("%w; %s", err, hint)
	}
	return nil, err
}

// validation is the outcome of checking one record file.
type validation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// validateFiles checks each file as a profile record. A name already used
// by an earlier file is reported because the device would skip it.
func validateFiles(paths []string) []validation {
	results := make([]validation, 0, len(paths))
	seen := map[string]string{}
	for _, path := range paths {
		v := validation{Path: path}
		data, err := os.ReadFile(path)
		if err == nil {
			var rec *profile.Record
			rec, err = profile.Decode(data)
			if err == nil {
				v.Name = rec.Name
				if first, dup := seen[rec.Name]; dup {
					err = fmt.Errorf("name %q already used by %s", rec.Name, first)
				} else {
					seen[rec.Name] = path
					_, err = profile.StoragePath(filepath.Dir(path), rec.Name)
				}
			}
		}
		v.Valid = err == nil
		if err != nil {
			v.Error = err.Error()
		}
		results = append(results, v)
	}
	return results
}

// recordFiles lists the record files in dir in load order.
func recordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != profile.FileExt {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check profile records",
	Long: `Checks record files the way the device loads them. With no arguments,
every record in the macros directory is checked.`,
	GroupID: "profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir, _ := cmd.Flags().GetString("macros"); dir != "" {
				cfg.MacrosDir = dir
			}
			if paths, err = recordFiles(cfg.MacrosDir); err != nil {
				return err
			}
		}

		results := validateFiles(paths)
		failed := 0
		for _, r := range results {
			if !r.Valid {
				failed++
			}
		}

		if jsonOutput(cmd) {
			if err := output.JSON(results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				if r.Valid {
					output.Success("%s (%s)", r.Path, r.Name)
				} else {
					output.Error("%s: %s", r.Path, r.Error)
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d records invalid", failed, len(results))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles in the macros directory",
	GroupID: "profiles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore(cmd)
		if err != nil {
			return err
		}

		type row struct {
			Name string `json:"name"`
			Keys int    `json:"keys"`
			Path string `json:"path"`
		}
		var rows []row
		for _, p := range st.All() {
			n := 0
			for _, k := range p.Keys {
				if k.Name != "" || len(k.Actions) > 0 {
					n++
				}
			}
			rows = append(rows, row{Name: p.Name, Keys: n, Path: p.Path})
		}

		if jsonOutput(cmd) {
			if rows == nil {
				rows = []row{}
			}
			return output.JSON(rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), output.Subtle("no profiles in "+st.Dir()))
			return nil
		}
		for _, r := range rows {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %2d keys  %s\n", r.Name, r.Keys, output.Subtle(r.Path))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <name>",
	Short:   "Show a profile's key grid and actions",
	GroupID: "profiles",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore(cmd)
		if err != nil {
			return err
		}
		p, err := findProfile(st, args[0])
		if err != nil {
			if jsonOutput(cmd) {
				output.JSONError(output.ErrCodeNotFound, err.Error())
			}
			return err
		}

		if jsonOutput(cmd) {
			return output.JSON(json.RawMessage(p.Source))
		}
		fmt.Fprintln(cmd.OutOrStdout(), output.FormatProfile(p, output.TerminalWidth(80)))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Delete a profile record from the macros directory",
	GroupID: "profiles",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore(cmd)
		if err != nil {
			return err
		}
		p, err := findProfile(st, args[0])
		if err != nil {
			return err
		}
		if err := profile.Delete(p, st.Dir()); err != nil {
			return err
		}
		output.Success("deleted %s (%s)", p.Name, p.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, listCmd, showCmd, deleteCmd)

	for _, c := range []*cobra.Command{validateCmd, listCmd, showCmd, deleteCmd} {
		c.Flags().StringP("macros", "m", "", "macros directory (default from config)")
	}
	for _, c := range []*cobra.Command{validateCmd, listCmd, showCmd} {
		c.Flags().Bool("json", false, "JSON output")
	}
}
