package llm

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/SaiNageswarS/go-api-boot/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
// Set OPENAI_BASE_URL to point it at a proxy or a non-OpenAI provider.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(model string) LLMClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		// Providers are designed for dependency injection.
		// If the API key is not set, we log a fatal error.
		logger.Fatal("OPENAI_API_KEY environment variable is not set")
		return nil
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) GetModel() string {
	return c.model
}

func (c *OpenAIClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := LLMSettings{
		model:       c.model,
		temperature: 0.7,
		maxTokens:   4096,
	}

	// Apply options
	for _, opt := range opts {
		opt(&settings)
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if settings.system != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: settings.system,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       settings.model,
		Messages:    chatMessages,
		Temperature: float32(settings.temperature),
		MaxTokens:   settings.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Provider: "openai", Err: err}
		}
		return err
	}

	// The provider may legitimately return nothing; an empty completion is
	// not an error.
	if len(resp.Choices) == 0 {
		return callback("")
	}

	return callback(resp.Choices[0].Message.Content)
}
