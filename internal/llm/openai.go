package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// openAIBackend speaks the OpenAI chat completions protocol. Ollama serves
// the same protocol under /v1, so both backends share it.
type openAIBackend struct {
	name        string
	baseURL     string
	client      *openai.Client
	temperature *float32
}

func newOllama(opts Options) *openAIBackend {
	host := opts.Host
	if host == "" {
		host = opts.Env.Get("OLLAMA_HOST", DefaultOllamaHost)
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	baseURL := strings.TrimRight(host, "/") + "/v1"

	// Ollama ignores the key but the client insists on one.
	cfg := openai.DefaultConfig(BackendOllama)
	cfg.BaseURL = baseURL

	return &openAIBackend{
		name:        BackendOllama,
		baseURL:     baseURL,
		client:      openai.NewClientWithConfig(cfg),
		temperature: opts.Temperature,
	}
}

func newOpenAI(opts Options) (*openAIBackend, error) {
	apiKey, ok := opts.Env.Lookup("OPENAI_API_KEY")
	if !ok {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.Host != "" {
		cfg.BaseURL = strings.TrimRight(opts.Host, "/")
	} else if base, ok := opts.Env.Lookup("OPENAI_BASE_URL"); ok {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}

	return &openAIBackend{
		name:        BackendOpenAI,
		baseURL:     cfg.BaseURL,
		client:      openai.NewClientWithConfig(cfg),
		temperature: opts.Temperature,
	}, nil
}

func (b *openAIBackend) Name() string { return b.name }

func (b *openAIBackend) Chat(ctx context.Context, model string, messages []Message) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	if b.temperature != nil {
		req.Temperature = requestTemperature(*b.temperature)
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("cannot reach %s at %s (is it running?): %w", b.name, b.baseURL, err)
		}
		return nil, fmt.Errorf("%s chat request failed: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", b.name)
	}

	msg := resp.Choices[0].Message
	return &Response{Message: Message{Role: msg.Role, Content: msg.Content}}, nil
}

// requestTemperature maps a configured temperature onto the request field.
// go-openai drops a zero temperature from the JSON body (omitempty), which
// leaves the server default in force, so zero is sent as the smallest
// positive float32 instead.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
