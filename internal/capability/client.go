package capability

// #region imports
import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// #endregion

// #region message

// Message is one conversation entry passed to the generation capability.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Request bundles everything one completion call needs.
type Request struct {
	SystemPrompt string
	History      []Message
	UserInput    string
	Temperature  float32
}

// #endregion

// #region client-interface

// Client is the external language-model capability. One client serves all
// three personas (agent, judge, rewriter); the persona lives in the prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// #endregion

// #region openai-client

// OpenAIClient wraps an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for the given API key and model.
// baseURL may be empty for the default endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("capability: api key is empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete sends one chat completion request and returns the text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserInput,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// #endregion

// #region scripted-client

// ScriptedClient returns canned responses in order, then repeats the last
// one. Used for tests and offline simulation, in place of a live endpoint.
type ScriptedClient struct {
	Responses []string
	Errs      []error
	calls     int
}

// Complete pops the next scripted response or error.
func (s *ScriptedClient) Complete(_ context.Context, _ Request) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.Errs) && s.Errs[i] != nil {
		return "", s.Errs[i]
	}
	if len(s.Responses) == 0 {
		return "", fmt.Errorf("scripted client: no responses configured")
	}
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	return s.Responses[i], nil
}

// Calls reports how many times Complete ran.
func (s *ScriptedClient) Calls() int { return s.calls }

// #endregion
