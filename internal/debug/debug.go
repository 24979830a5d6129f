package debug

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// GetLogger returns a singleton slog logger instance.
// The terminal belongs to the TUI, so everything goes to a file.
func GetLogger() *slog.Logger {
	once.Do(func() {
		level := slog.LevelInfo
		if os.Getenv("TALKZEN_DEBUG") != "" {
			level = slog.LevelDebug
		}
		path := filepath.Join(os.TempDir(), "talkzen-debug.log")
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			panic(err)
		}
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}))
	})
	return logger
}
