// Package server serves a read-only web view of the chat history.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/internal/cli"
	"github.com/malonaz/talkzen/internal/debug"
)

//go:embed templates
var templatesFS embed.FS

const shutdownTimeout = 5 * time.Second

type PageData struct {
	Title       string
	Query       string
	Chat        *ChatViewModel
	Chats       []ChatViewModel
	CurrentPage int
	TotalPages  int
}

type ChatViewModel struct {
	*chat.Session
	FormattedTime string
}

// Sessions is the part of the chat store the server reads from.
type Sessions interface {
	Reload(ctx context.Context) error
	ListSessions() []*chat.Session
	Get(id string) (*chat.Session, error)
	DeleteSession(ctx context.Context, id string) (*chat.Session, error)
}

func NewServeCmd(env *cli.Env) *cobra.Command {
	var opts struct {
		Port     int
		PageSize int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a web interface for viewing chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := opts.Port
			if !cmd.Flags().Changed("port") {
				port = env.Config.Server.Port
			}
			server, err := New(env.App.Chats, opts.PageSize)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return server.Start(ctx, port)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 3030, "Port to serve on")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 50, "Number of chats to display")
	return cmd
}

type Server struct {
	sessions Sessions
	pageSize int
	tmpl     *template.Template
	log      *slog.Logger
}

// New parses the templates and returns a server reading from sessions.
func New(sessions Sessions, pageSize int) (*Server, error) {
	funcMap := sprig.HtmlFuncMap()
	funcMap["formatMessage"] = formatMessage
	funcMap["messageRole"] = messageRole

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
		"templates/*.tmpl",
		"templates/pages/*.tmpl",
	)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Server{
		sessions: sessions,
		pageSize: pageSize,
		tmpl:     tmpl,
		log:      debug.GetLogger().With("component", "server"),
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleInbox)
	mux.HandleFunc("GET /chat/{id}", s.handleChat)
	mux.HandleFunc("POST /chat/{id}/delete", s.handleDeleteChat)
	mux.HandleFunc("DELETE /chat/{id}", s.handleDeleteChat)
	return s.logRequests(mux)
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		fmt.Printf("Server starting on http://localhost%s\n", addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) render(w http.ResponseWriter, data *PageData) {
	if err := s.tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.log.Error("rendering page", "title", data.Title, "error", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}
