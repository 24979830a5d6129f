package history

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/store"
)

const maxHistorySize = 1000

// History manages composer input history with persistence.
type History struct {
	entries []string
	index   int    // Current position in history (-1 means new input)
	current string // Stores current input when navigating history
	mu      sync.Mutex
	kv      store.Store
}

// New creates a History and loads existing entries from kv.
func New(ctx context.Context, kv store.Store) *History {
	h := &History{
		entries: make([]string, 0),
		index:   -1,
		kv:      kv,
	}
	h.load(ctx)
	return h
}

// load reads history from the store.
func (h *History) load(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	value, ok, err := h.kv.Get(ctx, store.KeyInputHistory)
	if err != nil || !ok {
		return
	}
	if err := json.Unmarshal([]byte(value), &h.entries); err != nil {
		debug.GetLogger().Warn("discarding undecodable input history", "error", err)
		h.entries = make([]string, 0)
		return
	}

	// Trim to max size if needed
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
}

// save writes history to the store. Callers hold the lock.
func (h *History) save(ctx context.Context) {
	bytes, err := json.Marshal(h.entries)
	if err != nil {
		return
	}
	if err := h.kv.Set(ctx, store.KeyInputHistory, string(bytes)); err != nil {
		debug.GetLogger().Warn("persisting input history", "error", err)
	}
}

// Add adds a new entry to history.
func (h *History) Add(ctx context.Context, entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = -1
	h.current = ""
	// Don't add duplicates of the last entry
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return
	}

	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
	h.save(ctx)
}

// Previous returns the previous entry in history.
// currentInput is the current composer content, restored by Next once past the newest entry.
func (h *History) Previous(currentInput string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return "", false
	}

	if h.index == -1 {
		h.current = currentInput
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	} else {
		// Already at oldest entry
		return h.entries[0], false
	}

	return h.entries[h.index], true
}

// Next returns the next entry in history (toward present).
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == -1 {
		return "", false
	}

	h.index++
	if h.index >= len(h.entries) {
		h.index = -1
		return h.current, true
	}
	return h.entries[h.index], true
}

// Reset resets the navigation index (call when input is modified).
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = -1
	h.current = ""
}
