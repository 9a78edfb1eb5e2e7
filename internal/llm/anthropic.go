package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/codescanai/codescan/internal/models"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	APIKey  string
	Model   string
	BaseURL string // overridden in tests
	Client  *http.Client
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Request to the Messages API
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response from the Messages API
type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt as a single user message.
// Temperature stays at 0 so analysis output is as repeatable as the model
// allows.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", models.ErrNotConfigured)
	}

	reqBody := anthropicRequest{
		Model:       c.Model,
		MaxTokens:   maxCompletionTokens,
		Temperature: 0,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL()+"/v1/messages",
		bytes.NewBuffer(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ar anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The reply is the first text content block.
	var text string
	for _, block := range ar.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return &Completion{
		Text:         text,
		Model:        ar.Model,
		InputTokens:  ar.Usage.InputTokens,
		OutputTokens: ar.Usage.OutputTokens,
	}, nil
}

func (c *AnthropicClient) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return anthropicBaseURL
}
