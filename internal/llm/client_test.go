package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsModelAndMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "gemma:2b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		require.NotNil(t, req.Options)
		assert.Equal(t, 128, req.Options.NumPredict)

		json.NewEncoder(w).Encode(ChatResponse{
			Model:   req.Model,
			Message: Message{Role: "assistant", Content: "Objection sustained."},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL, "gemma:2b")

	reply, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: ChatSystemPrompt("lawyer")},
		{Role: "user", Content: "Can they do that?"},
	}, &Options{NumPredict: 128})

	require.NoError(t, err)
	assert.Equal(t, "Objection sustained.", reply)
}

func TestChatBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClientWithBaseURL(srv.URL, "gemma:2b")

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}

func TestChatBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL, "gemma:2b")

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}

func TestListPersonas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/adapters", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{
			"adapters": {"lawyer", "doctor", "language tutor"},
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL, "gemma:2b")

	personas, err := client.ListPersonas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lawyer", "doctor", "language tutor"}, personas)
}

func TestChatSystemPromptMentionsPersona(t *testing.T) {
	prompt := ChatSystemPrompt("doctor")
	assert.True(t, strings.Contains(prompt, "acting as a doctor"))
	assert.True(t, strings.Contains(prompt, "AVA"))
}
