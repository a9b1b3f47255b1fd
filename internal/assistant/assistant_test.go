package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/makistry/meshview/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recorder) RecordAssistantRequest(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func reply(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
}

func newTestClient(t *testing.T, key string, h http.HandlerFunc) (*Client, *recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	creds := credential.NewMemoryStore()
	if key != "" {
		require.NoError(t, creds.Set(context.Background(), key))
	}
	rec := &recorder{}
	return New(Options{Endpoint: srv.URL, Credentials: creds, Recorder: rec, Temperature: DefaultTemperature}), rec
}

func TestChatSendsBearerAndHistory(t *testing.T) {
	var got chatRequest
	c, rec := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "Use a fillet.")
	})

	history := []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}
	out, err := c.Chat(context.Background(), "how do I round edges?", history)
	require.NoError(t, err)
	assert.Equal(t, "Use a fillet.", out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultTemperature, got.Temperature)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, history[0], got.Messages[1])
	assert.Equal(t, Message{Role: RoleUser, Content: "how do I round edges?"}, got.Messages[3])
	assert.Equal(t, []string{"ok"}, rec.statuses)
}

func TestMissingCredential(t *testing.T) {
	called := false
	c, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Chat(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = c.Suggestions(context.Background(), "box", "stand")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, called)
}

func TestCredentialReadOnEveryCall(t *testing.T) {
	var auth []string
	c, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		reply(w, "ok")
	})
	ctx := context.Background()

	require.NoError(t, c.Credentials().Set(ctx, "sk-one"))
	_, err := c.Chat(ctx, "a", nil)
	require.NoError(t, err)

	require.NoError(t, c.Credentials().Set(ctx, "sk-two"))
	_, err = c.Chat(ctx, "b", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer sk-one", "Bearer sk-two"}, auth)
}

func TestProviderError(t *testing.T) {
	c, rec := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`invalid key`))
	})

	_, err := c.Chat(context.Background(), "hi", nil)
	require.Error(t, err)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "Assistant error 401: invalid key", err.Error())
	assert.Equal(t, []string{"401"}, rec.statuses)
}

func TestEmptyChoices(t *testing.T) {
	c, _ := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	out, err := c.Chat(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSuggestions(t *testing.T) {
	var prompt string
	c, _ := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		prompt = req.Messages[1].Content
		reply(w, `["Thicker base","Add ribs","Chamfer edges","Hollow core","Extra"]`)
	})

	got, err := c.Suggestions(context.Background(), "box(10,10,10)", "phone stand")
	require.NoError(t, err)
	assert.Equal(t, []string{"Thicker base", "Add ribs", "Chamfer edges", "Hollow core"}, got)
	assert.Contains(t, prompt, `"phone stand"`)
	assert.Contains(t, prompt, `"box(10,10,10)"`)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"json array", `["a","b"]`, []string{"a", "b"}},
		{"json non-string items", `["a", 2]`, []string{"a", "2"}},
		{"json object", `{"a":1}`, []string{}},
		{"fenced json", "```json\n[\"a\",\"b\"]\n```", []string{"a", "b"}},
		{"lines", "1. Fillet\n\n2. Ribs\n3. Chamfer\n4. Hollow\n5. More", []string{"1. Fillet", "2. Ribs", "3. Chamfer", "4. Hollow"}},
		{"blank", "  \n\n", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSuggestions(tt.content))
		})
	}
}
