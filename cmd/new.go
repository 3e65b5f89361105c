package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/store"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
)

var errNameRequired = errors.New("name is required")

// newForm holds the answers of the interactive form.
type newForm struct {
	Name    string
	From    string
	Confirm bool
}

func (f *newForm) build(st *store.Store) *huh.Form {
	options := []huh.Option[string]{huh.NewOption("Empty profile", "")}
	for name := range st.Names() {
		options = append(options, huh.NewOption("Copy of "+name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&f.Name).
				Placeholder("Profile name...").
				Validate(func(s string) error { return checkNewName(st, s) }),
			huh.NewSelect[string]().
				Title("Start from").
				Options(options...).
				Value(&f.From),
			huh.NewConfirm().
				Title("Create profile?").
				Value(&f.Confirm),
		).Title("New Profile"),
	)
	form.WithTheme(huh.ThemeDracula())
	return form
}

// checkNewName rejects names that cannot become a new record in st.
func checkNewName(st *store.Store, name string) error {
	if strings.TrimSpace(name) == "" {
		return errNameRequired
	}
	if _, err := profile.StoragePath(st.Dir(), name); err != nil {
		return err
	}
	if _, ok := st.Find(name); ok {
		return fmt.Errorf("%w: %s", profile.ErrAlreadyExists, name)
	}
	return nil
}

// newRecord builds the record for a new profile, copying the keys of from
// when it is set.
func newRecord(st *store.Store, name, from string) ([]byte, error) {
	base := []byte(`{"name":"","macros":{}}`)
	if from != "" {
		src, err := findProfile(st, from)
		if err != nil {
			return nil, err
		}
		base = src.Source
	}
	out, err := sjson.SetBytes(base, "name", name)
	if err != nil {
		return nil, fmt.Errorf("set name: %w", err)
	}
	return out, nil
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a profile record",
	Long: `Creates a record in the macros directory. Without --name an interactive form
asks for the name and an optional profile to copy.`,
	Example: `  macropad new
  macropad new --name Streaming --from Work`,
	GroupID: "profiles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore(cmd)
		if err != nil {
			return err
		}

		f := newForm{Confirm: true}
		f.Name, _ = cmd.Flags().GetString("name")
		f.From, _ = cmd.Flags().GetString("from")

		if f.Name == "" {
			if !output.IsTerminal() {
				return fmt.Errorf("--name is required when not running in a terminal")
			}
			if err := f.build(st).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
			if !f.Confirm {
				output.Info("cancelled")
				return nil
			}
		} else if err := checkNewName(st, f.Name); err != nil {
			return err
		}

		data, err := newRecord(st, f.Name, f.From)
		if err != nil {
			return err
		}
		p, err := profile.Create(data, st.Dir(), st.Options())
		if err != nil {
			return err
		}
		output.Success("created %s (%s)", p.Name, p.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringP("name", "n", "", "profile name")
	newCmd.Flags().String("from", "", "copy keys from an existing profile")
	newCmd.Flags().StringP("macros", "m", "", "macros directory (default from config)")
}
