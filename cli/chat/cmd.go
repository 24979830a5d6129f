package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.design/x/clipboard"

	"github.com/malonaz/talkzen/cli/account"
	"github.com/malonaz/talkzen/cli/tui"
	"github.com/malonaz/talkzen/internal/cli"
	"github.com/malonaz/talkzen/internal/configuration"
)

// NewCmd instantiates and returns the chat command.
func NewCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		ChatID string
		Guest  bool
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := env.App

			if _, err := account.EnsureIdentity(ctx, a, opts.Guest); err != nil {
				return err
			}
			if opts.ChatID != "" {
				if err := a.Chats.Select(opts.ChatID); err != nil {
					return fmt.Errorf("opening chat %s: %w", opts.ChatID, err)
				}
			}

			m, err := tui.New(ctx, a, clipboard.Init())
			if err != nil {
				return err
			}

			p := tea.NewProgram(
				m,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithMouseCellMotion(),
				tea.WithReportFocus(),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running chat: %w", err)
			}
			if m.LoggedOut() {
				cli.Notice("Logged out\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ChatID, "id", "", "Open the chat with this id")
	cmd.Flags().BoolVar(&opts.Guest, "guest", false, "Continue as guest if nobody is logged in")
	cmd.RegisterFlagCompletionFunc("id", completeChatIDs(env))
	return cmd
}

// completeChatIDs completes chat ids with their titles.
func completeChatIDs(env *cli.Env) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if env.App == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []string
		for _, session := range env.App.Chats.ListSessions() {
			if strings.HasPrefix(session.ID, toComplete) {
				completions = append(completions, session.ID+"\t"+session.Title)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// CompleteModels completes model names and aliases.
func CompleteModels(env *cli.Env) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		config := env.Config
		if config == nil {
			config = configuration.Default()
		}
		var names []string
		for _, model := range config.Models {
			names = append(names, model.Name, model.Alias)
		}
		return filterModels(names, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

func filterModels(models []string, prefix string) []string {
	if prefix == "" {
		return models
	}

	var matches []string
	lowerPrefix := strings.ToLower(prefix)

	for _, model := range models {
		if strings.Contains(strings.ToLower(model), lowerPrefix) {
			matches = append(matches, model)
		}
	}

	return matches
}
