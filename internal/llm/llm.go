// Package llm talks to the language model that writes the comments.
//
// A Backend is a chat capability: it takes a model identifier and a list of
// role/content messages and returns a single reply message. Client wraps a
// Backend for nota's one request per run.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hekzory/nota/internal/ctxlog"
	"github.com/Hekzory/nota/internal/runenv"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Backend names.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Default model identifiers per backend.
const (
	DefaultOllamaModel = "llama3.2:latest"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// DefaultOllamaHost is where a local Ollama listens unless told otherwise.
const DefaultOllamaHost = "http://localhost:11434"

// ErrEmptyResponse is returned when the model replies with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the backend's reply.
type Response struct {
	Message Message `json:"message"`
}

// Backend sends a chat request to an inference service.
type Backend interface {
	Name() string
	Chat(ctx context.Context, model string, messages []Message) (*Response, error)
}

// InvocationError wraps any failure of the model call.
type InvocationError struct {
	Backend string
	Model   string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (%s, %s): %v", e.Backend, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Model       string
	Host        string
	Temperature *float32
	Env         runenv.Env
}

// NewBackend creates the backend named in opts.
func NewBackend(opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendOllama:
		return newOllama(opts), nil
	case BackendOpenAI:
		return newOpenAI(opts)
	case BackendGemini:
		return newGemini(opts)
	default:
		return nil, fmt.Errorf("unknown backend %q (use %s, %s or %s)",
			opts.Backend, BackendOllama, BackendOpenAI, BackendGemini)
	}
}

// DefaultModel returns the model used for backend when none is configured.
func DefaultModel(backend string) string {
	switch strings.ToLower(backend) {
	case BackendOpenAI:
		return DefaultOpenAIModel
	case BackendGemini:
		return DefaultGeminiModel
	default:
		return DefaultOllamaModel
	}
}

// Client issues commenting requests through a Backend.
type Client struct {
	backend Backend
	model   string
	timeout time.Duration
}

// NewClient returns a Client. An empty model selects the backend default;
// a zero timeout leaves the call unbounded.
func NewClient(backend Backend, model string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel(backend.Name())
	}
	return &Client{backend: backend, model: model, timeout: timeout}
}

// Model returns the model identifier requests are sent to.
func (c *Client) Model() string { return c.model }

// Backend returns the name of the backend in use.
func (c *Client) Backend() string { return c.backend.Name() }

// Comment sends prompt as a single user message and returns the reply text
// with surrounding whitespace trimmed.
func (c *Client) Comment(ctx context.Context, prompt string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger.Debug("Sending prompt to model.",
		"backend", c.backend.Name(), "model", c.model, "bytes", len(prompt))
	start := time.Now()

	resp, err := c.backend.Chat(ctx, c.model, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return "", c.fail(err)
	}

	content := strings.TrimSpace(resp.Message.Content)
	if content == "" {
		return "", c.fail(ErrEmptyResponse)
	}

	logger.Debug("Model replied.", "bytes", len(content), "elapsed", time.Since(start))
	return content, nil
}

func (c *Client) fail(err error) error {
	return &InvocationError{Backend: c.backend.Name(), Model: c.model, Err: err}
}
