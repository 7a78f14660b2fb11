package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// ChatRequest is one chat-completion invocation. Each stage fixes its own
// model, temperature and token budget.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	// JSONOnly asks the API to constrain the response to a single JSON object.
	JSONOnly bool
}

// ChatResponse carries the first choice's content plus usage counters.
type ChatResponse struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// ChatClient defines the interface for chat completion operations
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client}
}

// Complete implements the chat completion method
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices from OpenAI")
	}
	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// LLM is the gateway every stage talks to. The underlying client is built
// lazily on first use so commands that never call the API don't need a key.
type LLM struct {
	client     ChatClient
	apiKey     string
	clientOnce sync.Once
	initErr    error
	log        *Logger
}

// NewLLM creates a gateway with an explicit client. Tests pass fakes here.
func NewLLM(client ChatClient, log *Logger) *LLM {
	return &LLM{client: client, log: log}
}

// NewLLMWithKey creates a gateway with lazy client initialization.
func NewLLMWithKey(apiKey string, log *Logger) *LLM {
	return &LLM{apiKey: apiKey, log: log}
}

// ensureClient initializes the OpenAI client if needed. All reads and writes
// of g.client happen through the Once so concurrent Generate calls are safe.
func (g *LLM) ensureClient() error {
	g.clientOnce.Do(func() {
		if g.client != nil {
			return
		}
		if g.initErr = ValidateOpenAIAPIKey(g.apiKey); g.initErr != nil {
			return
		}
		g.client = NewOpenAIClient(g.apiKey)
	})
	return g.initErr
}

// Generate runs one chat completion and returns the raw response text.
func (g *LLM) Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := g.ensureClient(); err != nil {
		return nil, err
	}

	g.log.Debug("chat completion",
		"model", req.Model,
		"json_only", req.JSONOnly,
		"prompt_chars", len(req.User),
	)

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}
	return resp, nil
}
