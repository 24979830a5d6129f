package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/talkzen/store"
)

func fixedClock() func() time.Time {
	now := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return now }
}

func newTestStore(t *testing.T, kv store.Store) *Store {
	t.Helper()
	s, err := Load(context.Background(), kv, Opts{TitleLength: 30, Now: fixedClock()})
	require.NoError(t, err)
	return s
}

func persisted(t *testing.T, kv store.Store) []*Session {
	t.Helper()
	value, ok, err := kv.Get(context.Background(), store.KeyChats)
	require.NoError(t, err)
	require.True(t, ok)
	var sessions []*Session
	require.NoError(t, json.Unmarshal([]byte(value), &sessions))
	return sessions
}

func TestLoad_AbsentOrCorrupt(t *testing.T) {
	ctx := context.Background()

	kv := store.NewMemory()
	s := newTestStore(t, kv)
	assert.Empty(t, s.ListSessions())
	assert.Nil(t, s.Active())

	require.NoError(t, kv.Set(ctx, store.KeyChats, "{not json"))
	s = newTestStore(t, kv)
	assert.Empty(t, s.ListSessions())
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	kv := store.NewMemory()
	require.NoError(t, kv.Set(context.Background(), store.KeyChats,
		`[{"id":"1","title":"a","messages":[]},{"id":"1","title":"b","messages":[]},{"id":"2","title":"c","messages":[{"role":"assistant","content":"hi"}]}]`))
	s := newTestStore(t, kv)
	sessions := s.ListSessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].Title)
	assert.Equal(t, RoleAssistant, sessions[1].Messages[0].Role)
}

func TestLoad_KeepsUndecodableSessions(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, store.KeyChats,
		`[{"id":"2","title":"system","messages":[{"role":"system","content":"be nice"}]},{"id":"1","title":"valid","messages":[{"role":"user","content":"hi"}]}]`))

	s := newTestStore(t, kv)
	sessions := s.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "valid", sessions[0].Title)

	_, err := s.CreateSession(ctx, "new")
	require.NoError(t, err)
	value, ok, err := kv.Get(ctx, store.KeyChats)
	require.NoError(t, err)
	require.True(t, ok)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(value), &entries))
	require.Len(t, entries, 3)
	assert.Contains(t, string(entries[2]), `"role":"system"`)
	assert.Len(t, newTestStore(t, kv).ListSessions(), 2)
}

func TestStore_SharedKV(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	server := newTestStore(t, kv)
	client, err := Load(ctx, kv, Opts{TitleLength: 30, Now: func() time.Time { return time.UnixMilli(1_800_000_000_000) }})
	require.NoError(t, err)

	kept, err := client.CreateSession(ctx, "kept")
	require.NoError(t, err)
	doomed, err := client.CreateSession(ctx, "doomed")
	require.NoError(t, err)
	assert.Empty(t, server.ListSessions())

	require.NoError(t, server.Reload(ctx))
	assert.Len(t, server.ListSessions(), 2)
	_, err = server.DeleteSession(ctx, doomed.ID)
	require.NoError(t, err)

	// The client appends to a snapshot the server changed behind its back.
	require.NoError(t, client.AppendMessage(ctx, kept.ID, &Message{Role: RoleUser, Content: "still here"}))
	sessions := persisted(t, kv)
	require.Len(t, sessions, 1)
	assert.Equal(t, kept.ID, sessions[0].ID)
	assert.Equal(t, "still here", sessions[0].Messages[0].Content)

	// A session created elsewhere survives a create here.
	_, err = server.CreateSession(ctx, "from server")
	require.NoError(t, err)
	_, err = client.DeleteSession(ctx, kept.ID)
	require.NoError(t, err)
	sessions = persisted(t, kv)
	require.Len(t, sessions, 1)
	assert.Equal(t, "from server", sessions[0].Title)
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newTestStore(t, kv)

	first, err := s.CreateSession(ctx, "What is the meaning of life, the universe and everything?")
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", first.ID)
	assert.Equal(t, "What is the meaning of life, t", first.Title)

	// Same clock tick still yields a unique id.
	second, err := s.CreateSession(ctx, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "1700000000001", second.ID)

	sessions := s.ListSessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
	assert.Equal(t, second.ID, s.Active().ID)
	assert.Len(t, persisted(t, kv), 2)
}

func TestAppendMessage_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newTestStore(t, kv)
	session, err := s.CreateSession(ctx, "seed")
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, s.AppendMessage(ctx, session.ID,
			&Message{Role: RoleUser, Content: fmt.Sprintf("q%d", i)},
			&Message{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		))
	}

	// Reload from storage to check the snapshot, not the in-memory copy.
	reloaded := newTestStore(t, kv)
	got, err := reloaded.Get(session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 10)
	for i, message := range got.Messages {
		if i%2 == 0 {
			assert.Equal(t, RoleUser, message.Role)
			assert.Equal(t, fmt.Sprintf("q%d", i/2), message.Content)
		} else {
			assert.Equal(t, RoleAssistant, message.Role)
			assert.Equal(t, fmt.Sprintf("a%d", i/2), message.Content)
		}
	}
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	s := newTestStore(t, store.NewMemory())
	err := s.AppendMessage(context.Background(), "missing", &Message{Role: RoleUser, Content: "x"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTruncateAndEdit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemory())
	session, err := s.CreateSession(ctx, "seed")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, session.ID,
		&Message{Role: RoleUser, Content: "q0"},
		&Message{Role: RoleAssistant, Content: "a0"},
		&Message{Role: RoleUser, Content: "q1"},
		&Message{Role: RoleAssistant, Content: "a1"},
	))

	require.ErrorIs(t, s.EditMessage(ctx, session.ID, 1, "nope"), ErrNotUserMessage)
	require.NoError(t, s.EditMessage(ctx, session.ID, 0, "q0 edited"))
	got, err := s.Get(session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "q0 edited", got.Messages[0].Content)

	require.NoError(t, s.TruncateAfter(ctx, session.ID, 0))
	got, err = s.Get(session.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)

	require.ErrorIs(t, s.TruncateAfter(ctx, session.ID, 3), ErrMessageNotFound)
}

func TestRate_Toggles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemory())
	session, err := s.CreateSession(ctx, "seed")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, session.ID,
		&Message{Role: RoleUser, Content: "q"},
		&Message{Role: RoleAssistant, Content: "a"},
	))

	rating, err := s.Rate(ctx, session.ID, 1, RatingLike)
	require.NoError(t, err)
	assert.Equal(t, RatingLike, rating)
	rating, err = s.Rate(ctx, session.ID, 1, RatingDislike)
	require.NoError(t, err)
	assert.Equal(t, RatingDislike, rating)
	rating, err = s.Rate(ctx, session.ID, 1, RatingDislike)
	require.NoError(t, err)
	assert.Equal(t, RatingNone, rating)

	_, err = s.Rate(ctx, session.ID, 0, RatingLike)
	require.ErrorIs(t, err, ErrNotAssistantMessage)
}

func TestDeleteSession_NonActive(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newTestStore(t, kv)
	older, err := s.CreateSession(ctx, "older")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, older.ID, &Message{Role: RoleUser, Content: "hi"}))
	newer, err := s.CreateSession(ctx, "newer")
	require.NoError(t, err)
	require.NoError(t, s.Select(older.ID))
	before := s.Active()

	active, err := s.DeleteSession(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, before, active)
	sessions := s.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, older.ID, sessions[0].ID)
	assert.Len(t, persisted(t, kv), 1)
}

func TestDeleteSession_ActiveFallsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemory())
	older, err := s.CreateSession(ctx, "older")
	require.NoError(t, err)
	newer, err := s.CreateSession(ctx, "newer")
	require.NoError(t, err)

	active, err := s.DeleteSession(ctx, newer.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, older.ID, active.ID)

	active, err = s.DeleteSession(ctx, older.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, s.Active())

	_, err = s.DeleteSession(ctx, older.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := newTestStore(t, kv)
	_, err := s.CreateSession(ctx, "one")
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))
	assert.Empty(t, s.ListSessions())
	assert.Nil(t, s.Active())
	assert.Empty(t, persisted(t, kv))
}

func TestListSessions_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemory())
	session, err := s.CreateSession(ctx, "seed")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, session.ID, &Message{Role: RoleUser, Content: "q"}))

	s.ListSessions()[0].Messages[0].Content = "mutated"
	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "q", got.Messages[0].Content)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "short", Title("  short  ", 30))
	assert.Equal(t, "héllo", Title("héllo wörld", 5))
	assert.Equal(t, "unbounded", Title("unbounded", 0))
}
