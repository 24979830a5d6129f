package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/app"
	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/cli/account"
	"github.com/malonaz/talkzen/internal/cli"
	"github.com/malonaz/talkzen/internal/file"
	"github.com/malonaz/talkzen/internal/reveal"
)

// NewAskCmd instantiates and returns the ask command.
func NewAskCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		Files       []string
		ChatID      string
		Guest       bool
		Interactive bool
		Instant     bool
	}
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a question from the terminal",
		Long:  "Ask a question from the terminal. Without a prompt, it is read from the input (Ctrl+J to submit).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := env.App

			if _, err := account.EnsureIdentity(ctx, a, opts.Guest); err != nil {
				return err
			}

			// Load attachments before anything is sent.
			attachments := make([]*file.Attachment, 0, len(opts.Files))
			for _, path := range opts.Files {
				path, err := file.ExpandPath(path)
				if err != nil {
					return err
				}
				attachment, err := file.LoadAttachment(path, a.Config().Chat.MaxAttachmentBytes)
				if err != nil {
					return fmt.Errorf("attaching %s: %w", path, err)
				}
				attachments = append(attachments, attachment)
				cli.FileInfo("attaching file #%d: %s (%s)\n", len(attachments), attachment.Name, attachment.SizeLabel)
			}

			if opts.ChatID != "" {
				if err := a.Chats.Select(opts.ChatID); err != nil {
					return fmt.Errorf("opening chat %s: %w", opts.ChatID, err)
				}
				session := a.Chats.Active()
				cli.Title("TALKZEN [%s](%s)", a.Model(), session.ID)
				for _, message := range session.Messages {
					printMessage(message.Role == chat.RoleUser, message.Content)
				}
			} else if opts.Interactive {
				cli.Title("TALKZEN [%s]", a.Model())
			}

			prompt := strings.TrimSpace(strings.Join(args, " "))
			for {
				if prompt == "" {
					text, err := cli.PromptUser()
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return err
					}
					prompt = text
				}

				if err := ask(ctx, a, prompt, attachments, opts.Instant); err != nil {
					return err
				}
				if !opts.Interactive {
					return nil
				}
				prompt = ""
				attachments = nil
			}
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Files, "file", "f", nil, "Attach a file to the prompt")
	cmd.Flags().StringVar(&opts.ChatID, "id", "", "Continue the chat with this id")
	cmd.Flags().BoolVar(&opts.Guest, "guest", false, "Continue as guest if nobody is logged in")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Keep asking in the same chat")
	cmd.Flags().BoolVar(&opts.Instant, "instant", false, "Print the reply at once instead of revealing it")
	cmd.RegisterFlagCompletionFunc("id", completeChatIDs(env))
	return cmd
}

// ask sends one prompt and prints the outcome. Ctrl+C stops the request, or the reveal.
func ask(ctx context.Context, a *app.App, prompt string, attachments []*file.Attachment, instant bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Quick feedback so the user knows the prompt was submitted.
	cli.AIOutput("TalkZen-AI: ")
	result, err := a.Send(ctx, prompt, attachments)
	if err != nil {
		cli.AIOutput("\n")
		return err
	}

	switch result.Outcome {
	case app.OutcomeReplied:
		if instant {
			cli.AIOutput(result.Reply)
		} else {
			printed := 0
			err := reveal.Run(ctx, a.Config().RevealInterval(), result.Reply, func(frame string) {
				cli.AIOutput(frame[printed:])
				printed = len(frame)
			})
			if errors.Is(err, reveal.ErrStopped) {
				cli.Notice(" #Stopped (full reply saved)")
			}
		}
		cli.AIOutput("\n")
		cli.Separator()
		cli.Notice("chat %s\n", result.Session.ID)
	case app.OutcomeCanceled:
		cli.Notice("#Interrupted\n")
	case app.OutcomeFailed:
		cli.Error("%s\n", result.Reply)
	default:
		cli.AIOutput("\n")
		cli.Notice("%s\n", result.Reply)
	}
	return nil
}

func printMessage(user bool, content string) {
	if user {
		cli.UserInput("> %s\n", content)
		return
	}
	cli.AIOutput(content + "\n")
}
