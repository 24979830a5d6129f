package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/store"
)

const seed = `[
{"id":"1700000000002","title":"Go generics","messages":[
  {"role":"user","content":"How do generics work?"},
  {"role":"ai","content":"Use **type parameters**:\n\n` + "```go\\nfunc Map[T any]() {}\\n```" + `\n<script>alert(1)</script>","rating":"like"}]},
{"id":"1700000000001","title":"Weather","messages":[{"role":"user","content":"Is it sunny?"}]}
]`

func newTestServer(t *testing.T, pageSize int) (*Server, *chat.Store) {
	t.Helper()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(context.Background(), store.KeyChats, seed))
	sessions, err := chat.Load(context.Background(), kv, chat.Opts{TitleLength: 30})
	require.NoError(t, err)
	server, err := New(sessions, pageSize)
	require.NoError(t, err)
	return server, sessions
}

func get(t *testing.T, handler http.Handler, method, target string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestInbox(t *testing.T) {
	server, _ := newTestServer(t, 50)
	handler := server.Handler()

	resp, body := get(t, handler, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/chat/1700000000002"`)
	assert.Contains(t, body, "Weather")
	assert.Less(t, strings.Index(body, "Go generics"), strings.Index(body, "Weather"))

	_, body = get(t, handler, http.MethodGet, "/?q=SUNNY")
	assert.Contains(t, body, "Weather")
	assert.NotContains(t, body, "Go generics")

	_, body = get(t, handler, http.MethodGet, "/?q=nothing")
	assert.Contains(t, body, "No chats match")
}

func TestInbox_Pagination(t *testing.T) {
	server, _ := newTestServer(t, 1)
	handler := server.Handler()

	_, body := get(t, handler, http.MethodGet, "/")
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, "Go generics")
	assert.NotContains(t, body, "Weather")

	_, body = get(t, handler, http.MethodGet, "/?page=7")
	assert.Contains(t, body, "Page 2 of 2")
	assert.Contains(t, body, "Weather")
}

func TestChat(t *testing.T) {
	server, _ := newTestServer(t, 50)
	handler := server.Handler()

	resp, body := get(t, handler, http.MethodGet, "/chat/1700000000002")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>type parameters</strong>")
	assert.Contains(t, body, `class="language-go"`)
	assert.Contains(t, body, "👍 liked")
	assert.Contains(t, body, "TalkZen-AI")
	assert.NotContains(t, body, "<script>alert(1)</script>")

	resp, _ = get(t, handler, http.MethodGet, "/chat/42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteChat(t *testing.T) {
	server, sessions := newTestServer(t, 50)
	handler := server.Handler()

	resp, _ := get(t, handler, http.MethodPost, "/chat/1700000000001/delete")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	_, err := sessions.Get("1700000000001")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	resp, _ = get(t, handler, http.MethodDelete, "/chat/1700000000002")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, sessions.ListSessions())

	resp, _ = get(t, handler, http.MethodPost, "/chat/1700000000002/delete")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInbox_SeesChatsSavedElsewhere(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, store.KeyChats, seed))
	sessions, err := chat.Load(ctx, kv, chat.Opts{TitleLength: 30})
	require.NoError(t, err)
	server, err := New(sessions, 50)
	require.NoError(t, err)
	handler := server.Handler()

	// A terminal session writes to the same kv after the server started.
	other, err := chat.Load(ctx, kv, chat.Opts{
		TitleLength: 30,
		Now:         func() time.Time { return time.UnixMilli(1_800_000_000_000) },
	})
	require.NoError(t, err)
	_, err = other.CreateSession(ctx, "Saved elsewhere")
	require.NoError(t, err)

	_, body := get(t, handler, http.MethodGet, "/")
	assert.Contains(t, body, "Saved elsewhere")
	resp, _ := get(t, handler, http.MethodGet, "/chat/1800000000000")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, handler, http.MethodPost, "/chat/1700000000001/delete")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NoError(t, other.Reload(ctx))
	_, err = other.Get("1800000000000")
	assert.NoError(t, err)
	assert.Len(t, other.ListSessions(), 2)
}

func TestFormatMessage(t *testing.T) {
	html := string(formatMessage("# Title\n\n- a\n- b"))
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<li>a</li>")
	assert.Equal(t, "You", messageRole(chat.RoleUser))
	assert.Equal(t, "TalkZen-AI", messageRole(chat.RoleAssistant))
}
