package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/cli/account"
	"github.com/malonaz/talkzen/cli/chat"
	"github.com/malonaz/talkzen/cli/sessions"
	"github.com/malonaz/talkzen/cli/settings"
	"github.com/malonaz/talkzen/internal/cli"
	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/server"
)

func main() {
	var opts cli.EnvOpts
	env := &cli.Env{}

	rootCmd := &cobra.Command{
		Use:           "talkzen",
		Short:         "A calm AI chat client for the terminal",
		Version:       "1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Load(cmd.Context(), &opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", configuration.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&opts.Model, "model", "m", "", "Model to use for this run")
	rootCmd.PersistentFlags().BoolVar(&opts.Ephemeral, "ephemeral", false, "Do not persist anything")
	rootCmd.RegisterFlagCompletionFunc("model", chat.CompleteModels(env))

	rootCmd.AddCommand(chat.NewCmd(env))
	rootCmd.AddCommand(chat.NewAskCmd(env))
	rootCmd.AddCommand(account.NewLoginCmd(env))
	rootCmd.AddCommand(account.NewLogoutCmd(env))
	rootCmd.AddCommand(account.NewWhoamiCmd(env))
	rootCmd.AddCommand(account.NewGuestCmd(env))
	rootCmd.AddCommand(sessions.NewCmd(env))
	rootCmd.AddCommand(settings.NewModelCmd(env))
	rootCmd.AddCommand(settings.NewThemeCmd(env))
	rootCmd.AddCommand(settings.NewKeyCmd(env))
	rootCmd.AddCommand(server.NewServeCmd(env))

	// The chat and ask commands handle Ctrl+C themselves, SIGTERM stops everything.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		env.Close()
		cli.Error("%v\n", err)
		os.Exit(1)
	}
}
