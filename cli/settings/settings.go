package settings

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/cli/chat"
	"github.com/malonaz/talkzen/internal/cli"
)

// NewModelCmd instantiates and returns the model command.
func NewModelCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model [name]",
		Short: "Show or switch the model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := env.App
			if len(args) == 1 {
				if err := a.SwitchModel(cmd.Context(), args[0]); err != nil {
					return err
				}
				cli.Notice("Switched to %s\n", a.Model())
				return nil
			}
			for _, model := range env.Config.Models {
				marker := " "
				if model.Name == a.Model() {
					marker = "*"
				}
				fmt.Printf("%s %s (%s) via %s\n", marker, model.Name, model.Alias, model.Provider)
			}
			return nil
		},
		ValidArgsFunction: chat.CompleteModels(env),
	}
	return cmd
}

// NewThemeCmd instantiates and returns the theme command.
func NewThemeCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle between the dark and light themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, err := env.App.ToggleTheme(cmd.Context())
			if err != nil {
				return err
			}
			cli.Notice("Theme: %s\n", theme)
			return nil
		},
	}
}

// NewKeyCmd instantiates and returns the key command.
func NewKeyCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		Clear bool
	}
	cmd := &cobra.Command{
		Use:   "key [value]",
		Short: "Save or clear the API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := env.App
			if opts.Clear {
				if err := a.ClearAPIKey(cmd.Context()); err != nil {
					return err
				}
				cli.Notice("API key cleared\n")
				return nil
			}
			if len(args) == 0 {
				if a.HasAPIKey() {
					cli.Notice("An API key is configured\n")
				} else {
					cli.Notice("No API key, run `talkzen key <value>`\n")
				}
				return nil
			}
			if err := a.SaveAPIKey(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.Notice("API key saved\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Forget the saved key")
	return cmd
}
