package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourchat/tourchat/internal/chat"
)

// newModelServer returns a fake Ollama endpoint that records the request
// it receives and answers with the given reply.
func newModelServer(t *testing.T, reply string, got *[]chat.Message) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var req struct {
			Model    string         `json:"model"`
			Messages []chat.Message `json:"messages"`
			Stream   bool           `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.False(t, req.Stream)
		*got = req.Messages

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply},
		})
	}))
}

func TestSend_EmptyHistoryPrependsSystemOnWire(t *testing.T) {
	var got []chat.Message
	srv := newModelServer(t, "Here is your plan.", &got)
	defer srv.Close()

	g := chat.NewGateway(srv.URL, "llama3.1")
	reply, err := g.Send(context.Background(), "You are a planner", nil, "Plan day 1")
	require.NoError(t, err)
	assert.Equal(t, "Here is your plan.", reply)

	require.Len(t, got, 2)
	assert.Equal(t, chat.Message{Role: chat.RoleSystem, Content: "You are a planner"}, got[0])
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "Plan day 1"}, got[1])
}

func TestSend_StoredHistoryCarriesNoSystemTurn(t *testing.T) {
	var got []chat.Message
	srv := newModelServer(t, "Sure.", &got)
	defer srv.Close()

	// The caller keeps only the user/assistant turns of the first
	// exchange; the wire for the second one must not regrow a system
	// message.
	history := []chat.Message{
		{Role: chat.RoleUser, Content: "Plan day 1"},
		{Role: chat.RoleAssistant, Content: "Here is your plan."},
	}

	g := chat.NewGateway(srv.URL, "llama3.1")
	_, err := g.Send(context.Background(), "You are a planner", history, "Add a museum")
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, m := range got {
		assert.NotEqual(t, chat.RoleSystem, m.Role)
	}
	assert.Equal(t, "Add a museum", got[2].Content)
}

func TestSend_NoSystemPromptNoSystemMessage(t *testing.T) {
	var got []chat.Message
	srv := newModelServer(t, "ok", &got)
	defer srv.Close()

	g := chat.NewGateway(srv.URL, "llama3.1")
	_, err := g.Send(context.Background(), "", nil, "hello")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, chat.RoleUser, got[0].Role)
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := chat.NewGateway(srv.URL, "llama3.1")
	_, err := g.Send(context.Background(), "prompt", nil, "hello")
	require.ErrorIs(t, err, chat.ErrGateway)
}

func TestSend_Unreachable(t *testing.T) {
	g := chat.NewGateway("http://localhost:1", "llama3.1")
	_, err := g.Send(context.Background(), "prompt", nil, "hello")
	require.ErrorIs(t, err, chat.ErrGateway)
}

func TestConversation_AppendAndReset(t *testing.T) {
	var c chat.Conversation
	c.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})
	c.Append(chat.Message{Role: chat.RoleAssistant, Content: "hello"})
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Messages())

	// Appends after reset start a fresh sequence.
	c.Append(chat.Message{Role: chat.RoleUser, Content: "again"})
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "again", c.Messages()[0].Content)
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	var c chat.Conversation
	c.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})

	msgs := c.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "hi", c.Messages()[0].Content)
}
