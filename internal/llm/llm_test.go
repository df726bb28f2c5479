package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hekzory/nota/internal/runenv"
)

type fakeBackend struct {
	reply    string
	err      error
	model    string
	messages []Message
	deadline bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Chat(ctx context.Context, model string, messages []Message) (*Response, error) {
	f.model = model
	f.messages = messages
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Message: Message{Role: RoleAssistant, Content: f.reply}}, nil
}

func TestClientComment(t *testing.T) {
	backend := &fakeBackend{reply: "\n  ```js\nconst x = 1;\n```  \n"}
	client := NewClient(backend, "codellama:13b", 0)

	got, err := client.Comment(context.Background(), "PROMPT")
	require.NoError(t, err)

	assert.Equal(t, "```js\nconst x = 1;\n```", got)
	assert.Equal(t, "codellama:13b", backend.model)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "PROMPT"}}, backend.messages)
	assert.False(t, backend.deadline, "no timeout unless configured")
}

func TestClientDefaultsAndTimeout(t *testing.T) {
	backend := &fakeBackend{reply: "ok"}
	client := NewClient(backend, "", time.Minute)

	_, err := client.Comment(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, backend.model)
	assert.True(t, backend.deadline)
}

func TestClientErrors(t *testing.T) {
	boom := errors.New("connection refused")

	for name, backend := range map[string]*fakeBackend{
		"backend error": {err: boom},
		"blank reply":   {reply: " \n\t "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(backend, "m", 0).Comment(context.Background(), "p")

			var invErr *InvocationError
			require.True(t, errors.As(err, &invErr), "got %v", err)
			assert.Equal(t, "fake", invErr.Backend)
			assert.Equal(t, "m", invErr.Model)
		})
	}

	_, err := NewClient(&fakeBackend{reply: ""}, "m", 0).Comment(context.Background(), "p")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

// chatServer mimics the OpenAI-compatible endpoint Ollama serves under /v1.
func chatServer(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"model \"nope\" not found, try pulling it first","type":"api_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "llama3.2:latest",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaBackend(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "// commented\nx := 1\n", &seen)

	temp := float32(0.3)
	backend, err := NewBackend(Options{Backend: "ollama", Host: srv.URL, Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, backend.Name())

	got, err := NewClient(backend, "", 0).Comment(context.Background(), "comment this")
	require.NoError(t, err)
	assert.Equal(t, "// commented\nx := 1", got)

	assert.Equal(t, DefaultOllamaModel, seen["model"])
	assert.InDelta(t, 0.3, seen["temperature"], 1e-6)
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "comment this"}, msgs[0])
}

func TestOllamaBackendZeroTemperature(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "ok", &seen)

	zero := float32(0)
	backend, err := NewBackend(Options{Host: srv.URL, Temperature: &zero})
	require.NoError(t, err)

	_, err = NewClient(backend, "", 0).Comment(context.Background(), "p")
	require.NoError(t, err)

	temp, ok := seen["temperature"]
	require.True(t, ok, "a configured zero temperature must reach the server")
	assert.InDelta(t, 0, temp, 1e-6)
}

func TestOllamaBackendNoTemperature(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "ok", &seen)

	backend, err := NewBackend(Options{Host: srv.URL})
	require.NoError(t, err)

	_, err = NewClient(backend, "", 0).Comment(context.Background(), "p")
	require.NoError(t, err)

	_, ok := seen["temperature"]
	assert.False(t, ok, "temperature is left to the server unless configured")
}

func TestOllamaBackendModelNotFound(t *testing.T) {
	srv := chatServer(t, http.StatusNotFound, "", nil)

	backend, err := NewBackend(Options{Host: srv.URL})
	require.NoError(t, err)

	_, err = NewClient(backend, "nope", 0).Comment(context.Background(), "p")
	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaHostFromEnv(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "done", nil)

	backend, err := NewBackend(Options{Env: runenv.Env{Vars: map[string]string{"OLLAMA_HOST": srv.URL}}})
	require.NoError(t, err)

	got, err := NewClient(backend, "", 0).Comment(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestOllamaHostWithoutScheme(t *testing.T) {
	b := newOllama(Options{Host: "gpu-box:11434/"})
	assert.Equal(t, "http://gpu-box:11434/v1", b.baseURL)

	b = newOllama(Options{})
	assert.Equal(t, DefaultOllamaHost+"/v1", b.baseURL)
}

func TestOpenAIBackend(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "fine", nil)

	_, err := NewBackend(Options{Backend: "openai"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	backend, err := NewBackend(Options{
		Backend: "OpenAI",
		Host:    srv.URL + "/v1",
		Env:     runenv.Env{Vars: map[string]string{"OPENAI_API_KEY": "sk-test"}},
	})
	require.NoError(t, err)

	client := NewClient(backend, "", 0)
	assert.Equal(t, DefaultOpenAIModel, client.Model())

	got, err := client.Comment(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "fine", got)
}

func TestGeminiBackendNeedsKey(t *testing.T) {
	_, err := NewBackend(Options{Backend: "gemini"})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	backend, err := NewBackend(Options{
		Backend: "gemini",
		Env:     runenv.Env{Vars: map[string]string{"GOOGLE_API_KEY": "key"}},
	})
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, backend.Name())
	assert.Equal(t, DefaultGeminiModel, NewClient(backend, "", 0).Model())
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewBackend(Options{Backend: "llamafile"})
	assert.ErrorContains(t, err, `unknown backend "llamafile"`)
}

func TestSplitConversation(t *testing.T) {
	system, history, last := splitConversation([]Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	})

	assert.Equal(t, "be terse", system)
	assert.Equal(t, "second", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("first")}, history[0].Parts)
	assert.Equal(t, "model", history[1].Role)
}

func TestResponseText(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	text, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("// a\n"), genai.Text("x = 1")}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "// a\nx = 1", text)
}
