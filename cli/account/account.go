package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/app"
	"github.com/malonaz/talkzen/internal/auth"
	"github.com/malonaz/talkzen/internal/cli"
)

const (
	choiceAdmin = "Login as admin"
	choiceGuest = "Continue as guest"
)

// EnsureIdentity returns the current user. If nobody is logged in, guest picks
// the guest identity, otherwise the user is prompted.
func EnsureIdentity(ctx context.Context, a *app.App, guest bool) (*auth.User, error) {
	if user := a.Gate.Current(); user != nil {
		return user, nil
	}
	if guest {
		return a.Gate.LoginAsGuest(ctx)
	}
	choice, err := cli.Choose("Welcome to TalkZen-AI", []string{choiceAdmin, choiceGuest})
	if err != nil {
		return nil, err
	}
	if choice == choiceGuest {
		return a.Gate.LoginAsGuest(ctx)
	}
	return login(ctx, a)
}

func login(ctx context.Context, a *app.App) (*auth.User, error) {
	email, password, err := cli.AskCredentials(a.Config().Auth.AdminEmail)
	if err != nil {
		return nil, err
	}
	return a.Gate.Login(ctx, email, password)
}

// NewLoginCmd instantiates and returns the login command.
func NewLoginCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in as the admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := login(cmd.Context(), env.App)
			if errors.Is(err, auth.ErrInvalidCredentials) {
				cli.Error("Invalid credentials\n")
				return err
			}
			if err != nil {
				return err
			}
			cli.Notice("Welcome back, %s\n", user.DisplayName)
			return nil
		},
	}
}

// NewLogoutCmd instantiates and returns the logout command.
func NewLogoutCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.App.Logout(cmd.Context()); err != nil {
				return err
			}
			cli.Notice("Logged out\n")
			return nil
		},
	}
}

// NewWhoamiCmd instantiates and returns the whoami command.
func NewWhoamiCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := env.App.Gate.Current()
			if user == nil {
				cli.Notice("Not logged in\n")
				return nil
			}
			fmt.Printf("%s (%s)\n", user.DisplayName, user.Kind)
			if user.Email != "" {
				fmt.Printf("email: %s\n", user.Email)
			}
			fmt.Printf("logged in: %s\n", humanize.Time(time.UnixMilli(user.LoginTime)))
			return nil
		},
	}
}

// NewGuestCmd instantiates and returns the guest command, which reports the guest quota.
func NewGuestCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Show how many guest messages are left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			used, limit, err := env.App.Gate.GuestUsage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("guest messages: %d of %d used\n", used, limit)
			if used >= limit {
				cli.Notice("Guest limit reached, run `talkzen login` to continue chatting\n")
			}
			return nil
		},
	}
}
