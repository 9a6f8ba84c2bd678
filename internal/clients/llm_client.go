package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendsignal/pkg/retrier"
)

const (
	// DefaultLLMURL OpenAI chat completions endpoint.
	DefaultLLMURL = "https://api.openai.com/v1/chat/completions"
	// DefaultLLMModel model used when none is configured.
	DefaultLLMModel = "o1-mini"

	// reasoning models can take minutes to answer
	defaultTimeout    = 5 * time.Minute
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// LLMClient defines the interface for interacting with LLM services.
type LLMClient interface {
	// Chat sends one exchange and returns the assistant reply. An empty system
	// prompt sends the user message alone.
	Chat(ctx context.Context, system, user string) (string, error)
	// Model returns the model identifier.
	Model() string
}

// StatusError non-200 response from the LLM API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API returned status %d: %s", e.Code, e.Body)
}

// OpenAICompatibleClient talks to any OpenAI-compatible chat completions API.
type OpenAICompatibleClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// LLMOption configures the OpenAICompatibleClient.
type LLMOption func(*OpenAICompatibleClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) LLMOption {
	return func(cl *OpenAICompatibleClient) {
		cl.httpClient = c
	}
}

// WithLLMRetrier overrides the retry policy.
func WithLLMRetrier(r *retrier.Retrier) LLMOption {
	return func(cl *OpenAICompatibleClient) {
		cl.retrier = r
	}
}

// NewOpenAICompatibleClient creates a new client for OpenAI-compatible APIs.
func NewOpenAICompatibleClient(apiURL, apiKey, model string, opts ...LLMOption) *OpenAICompatibleClient {
	if apiURL == "" {
		apiURL = DefaultLLMURL
	}
	if model == "" {
		model = DefaultLLMModel
	}

	c := &OpenAICompatibleClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retrier: retrier.New(
			retrier.WithMaxRetries(defaultMaxRetries),
			retrier.WithInitialInterval(defaultRetryDelay),
			retrier.WithRetryIf(isRetryableLLMError),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model identifier.
func (c *OpenAICompatibleClient) Model() string {
	return c.model
}

// chatRequest represents the request structure for OpenAI-compatible APIs.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the response structure from OpenAI-compatible APIs.
type chatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   usage     `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Chat sends a chat request to the LLM API and returns the first choice.
func (c *OpenAICompatibleClient) Chat(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("LLM API key is empty")
	}

	reqBody := chatRequest{Model: c.model}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, message{Role: "system", Content: system})
	}
	reqBody.Messages = append(reqBody.Messages, message{Role: "user", Content: user})

	response, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (string, error) {
		return c.sendRequest(ctx, reqBody)
	})
	if err != nil {
		return "", errors.Wrap(err, "LLM request failed")
	}

	return response, nil
}

func (c *OpenAICompatibleClient) sendRequest(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}

	if chatResp.Error != nil {
		return "", errors.Errorf("LLM API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("LLM API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// isRetryableLLMError retries transport failures, rate limits and server errors.
func isRetryableLLMError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}

	return true
}
