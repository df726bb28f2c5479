package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiBackend struct {
	apiKey      string
	endpoint    string
	temperature *float32
}

func newGemini(opts Options) (*geminiBackend, error) {
	apiKey, ok := opts.Env.Lookup("GEMINI_API_KEY")
	if !ok {
		apiKey, ok = opts.Env.Lookup("GOOGLE_API_KEY")
	}
	if !ok {
		return nil, fmt.Errorf("Gemini API key not provided (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	return &geminiBackend{apiKey: apiKey, endpoint: opts.Host, temperature: opts.Temperature}, nil
}

func (b *geminiBackend) Name() string { return BackendGemini }

func (b *geminiBackend) Chat(ctx context.Context, model string, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("gemini: no messages to send")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(b.apiKey)}
	if b.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(b.endpoint))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	if b.temperature != nil {
		gm.SetTemperature(*b.temperature)
	}

	system, history, last := splitConversation(messages)
	if system != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	cs := gm.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini chat request failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return &Response{Message: Message{Role: RoleAssistant, Content: text}}, nil
}

// splitConversation maps chat messages onto Gemini's model: system messages
// become the system instruction, all but the final turn become history.
func splitConversation(messages []Message) (string, []*genai.Content, string) {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return "", nil, strings.Join(system, "\n\n")
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("gemini returned an empty candidate (finish reason %v)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
