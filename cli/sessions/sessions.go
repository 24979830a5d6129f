package sessions

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/internal/cli"
)

// NewCmd instantiates and returns the history command.
func NewCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage past chats",
	}
	cmd.AddCommand(newListCmd(env), newShowCmd(env), newDeleteCmd(env), newClearCmd(env))
	return cmd
}

// newListCmd instantiates and returns the history list command.
func newListCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		PageSize int
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Title("TALKZEN HISTORY")
			sessions := env.App.Chats.ListSessions()
			if len(sessions) == 0 {
				cli.Notice("No chats yet\n")
				return nil
			}
			for i, session := range sessions {
				if opts.PageSize > 0 && i == opts.PageSize {
					cli.Notice("... %d more\n", len(sessions)-i)
					break
				}
				cli.AIOutput(fmt.Sprintf("chat (%s) - %s - %d messages\n", session.ID, created(session), len(session.Messages)))
				cli.UserInput("> %s\n", session.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.PageSize, "page-size", "p", 50, "Page size")
	return cmd
}

// newShowCmd instantiates and returns the history show command.
func newShowCmd(env *cli.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.App.Chats.Get(args[0])
			if err != nil {
				return err
			}
			cli.Title("%s (%s)", session.Title, session.ID)
			for _, message := range session.Messages {
				if message.Role == chat.RoleUser {
					cli.UserInput("> %s\n", message.Content)
					continue
				}
				cli.AIOutput(message.Content + "\n")
				if message.Rating != chat.RatingNone {
					cli.Notice("[%s]\n", message.Rating)
				}
				cli.Separator()
			}
			return nil
		},
	}
}

// newDeleteCmd instantiates and returns the history delete command.
func newDeleteCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.App.Chats.Get(args[0])
			if err != nil {
				return err
			}
			if !opts.Yes && !cli.QueryUser(fmt.Sprintf("Delete chat %q?", session.Title)) {
				return nil
			}
			if _, err := env.App.Chats.DeleteSession(cmd.Context(), session.ID); err != nil {
				return err
			}
			cli.Notice("Deleted chat %s\n", session.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// newClearCmd instantiates and returns the history clear command.
func newClearCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count := len(env.App.Chats.ListSessions())
			if !opts.Yes && !cli.QueryUser(fmt.Sprintf("Delete all %d chats?", count)) {
				return nil
			}
			if err := env.App.Chats.ClearAll(cmd.Context()); err != nil {
				return err
			}
			cli.Notice("Deleted %d chats\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// created returns when the session was created. Ids are creation times in milliseconds.
func created(session *chat.Session) string {
	ms, err := strconv.ParseInt(session.ID, 10, 64)
	if err != nil {
		return "unknown"
	}
	return humanize.Time(time.UnixMilli(ms))
}
