package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/scylladb/go-set/strset"

	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/store"
)

// Opts for the store.
type Opts struct {
	// Sessions titles are truncated to this many characters.
	TitleLength int
	// Clock used to derive session ids. Defaults to time.Now.
	Now func() time.Time
}

// Store is the ordered collection of sessions, newest first.
// Every mutation re-reads the persisted collection, applies the change and
// persists the whole collection, so several processes can share one kv.
type Store struct {
	mu       sync.Mutex
	kv       store.Store
	opts     Opts
	sessions []*Session
	// Persisted entries that could not be decoded. They are written back untouched.
	undecodable []json.RawMessage
	activeID    string
}

// Load the store from kv. Absent or undecodable data yields an empty store.
func Load(ctx context.Context, kv store.Store, opts Opts) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{kv: kv, opts: opts}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload picks up changes persisted by other processes.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) error {
	value, ok, err := s.kv.Get(ctx, store.KeyChats)
	if err != nil {
		return fmt.Errorf("reading sessions: %w", err)
	}
	s.sessions, s.undecodable = nil, nil
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		debug.GetLogger().Warn("discarding undecodable sessions", "error", err)
		return nil
	}
	seen := strset.New()
	for _, entry := range entries {
		session := &Session{}
		if err := json.Unmarshal(entry, session); err != nil {
			debug.GetLogger().Warn("keeping undecodable session aside", "error", err)
			s.undecodable = append(s.undecodable, entry)
			continue
		}
		if session.ID == "" || seen.Has(session.ID) {
			continue
		}
		seen.Add(session.ID)
		s.sessions = append(s.sessions, session)
	}
	return nil
}

// commit persists sessions and, only if that succeeds, makes them current.
func (s *Store) commit(ctx context.Context, sessions []*Session) error {
	entries := make([]json.RawMessage, 0, len(sessions)+len(s.undecodable))
	for _, session := range sessions {
		entry, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshaling session %s: %w", session.ID, err)
		}
		entries = append(entries, entry)
	}
	entries = append(entries, s.undecodable...)
	bytes, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling sessions: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyChats, string(bytes)); err != nil {
		return fmt.Errorf("persisting sessions: %w", err)
	}
	s.sessions = sessions
	return nil
}

// indexOf returns the position of the session with the given id, or -1.
func (s *Store) indexOf(id string) int {
	for i, session := range s.sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

// update replaces the session with the given id by the result of fn applied to a clone.
func (s *Store) update(ctx context.Context, id string, fn func(*Session) error) error {
	if err := s.reload(ctx); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session := s.sessions[i].Clone()
	if err := fn(session); err != nil {
		return err
	}
	sessions := make([]*Session, len(s.sessions))
	copy(sessions, s.sessions)
	sessions[i] = session
	return s.commit(ctx, sessions)
}

// nextID derives a unique id from the clock.
func (s *Store) nextID() string {
	millis := s.opts.Now().UnixMilli()
	for {
		id := strconv.FormatInt(millis, 10)
		if s.indexOf(id) < 0 {
			return id
		}
		millis++
	}
}
