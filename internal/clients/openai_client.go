package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DEFAULT_LLM_MODEL   = "gpt-4o-mini"
	DEFAULT_LLM_TIMEOUT = 10 * time.Second
)

var ErrEmptyCompletion = errors.New("empty completion")

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	Client  *openai.Client
	Model   string
	Timeout time.Duration
}

func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("[OpenAIClient] missing LLM_API_KEY")
	}
	if model == "" {
		model = DEFAULT_LLM_MODEL
	}
	if timeout <= 0 {
		timeout = DEFAULT_LLM_TIMEOUT
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	slog.Info("[OpenAIClient] Client initialized",
		slog.String("model", model),
		slog.Duration("timeout", timeout))
	return &OpenAIClient{
		Client:  openai.NewClient(opts...),
		Model:   model,
		Timeout: timeout,
	}, nil
}

// Complete runs one chat completion and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	chatCompletion, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		}),
		Model:       openai.F(openai.ChatModel(c.Model)),
		Temperature: openai.Float(0.8),
		MaxTokens:   openai.Int(150),
	})
	if err != nil {
		return "", fmt.Errorf("[OpenAIClient] chat completion failed: %w", err)
	}

	if len(chatCompletion.Choices) == 0 || strings.TrimSpace(chatCompletion.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("[OpenAIClient] %w", ErrEmptyCompletion)
	}

	slog.Debug("[OpenAIClient] Completion received",
		slog.Duration("elapsed", time.Since(start)))
	return chatCompletion.Choices[0].Message.Content, nil
}
