// Package openai implements the chat wire family: system and user chat
// messages authenticated with a bearer token. Any vendor exposing the same
// /chat/completions surface is served by setting Name and BaseURL; Grok is
// preconfigured.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/phasr"
)

// Base URLs of the supported brands.
const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GrokBaseURL   = "https://api.x.ai/v1"
)

// Provider implements the phasr Provider interface for chat-completions APIs.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the chat provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gpt-4o", "grok-3"
	BaseURL string        // Optional, defaults to OpenAIBaseURL
	Name    string        // Optional, defaults to "openai"
	Timeout time.Duration // Optional, defaults to 120s
}

// New creates a new OpenAI provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.BaseURL == "" {
		config.BaseURL = OpenAIBaseURL
	}
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    config.Name,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewGrok creates a provider for xAI's Grok, which speaks the same format.
func NewGrok(config Config) *Provider {
	if config.Model == "" {
		config.Model = "grok-3"
	}
	if config.BaseURL == "" {
		config.BaseURL = GrokBaseURL
	}
	if config.Name == "" {
		config.Name = "grok"
	}
	return New(config)
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Family returns phasr.FamilyChat.
func (*Provider) Family() phasr.Family {
	return phasr.FamilyChat
}

// Call sends one system+user exchange as chat messages.
func (p *Provider) Call(ctx context.Context, in phasr.CallRequest) (*phasr.ProviderResponse, error) {
	startTime := time.Now()
	model, apiKey := p.model, p.apiKey
	if in.Model != "" {
		model = in.Model
	}
	if in.APIKey != "" {
		apiKey = in.APIKey
	}

	capitan.Info(ctx, phasr.ProviderCallStarted,
		phasr.ProviderKey.Field(p.name),
		phasr.ModelKey.Field(model),
		phasr.FamilyKey.Field(string(phasr.FamilyChat)),
	)

	messages := make([]message, 0, 2)
	if in.SystemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: in.SystemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: in.UserPrompt})

	requestBody := chatCompletionRequest{
		Model:     model,
		MaxTokens: in.Tokens(),
		Messages:  messages,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	out := &phasr.ProviderResponse{RequestBody: string(jsonBody), Model: model}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.emitFailed(ctx, model, 0, startTime, err.Error())
		return out, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("failed to read response: %w", err)
	}
	out.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.emitFailed(ctx, model, resp.StatusCode, startTime, string(body))
		return out, &phasr.HTTPError{Provider: p.name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completionResp chatCompletionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}

	var finishReason string
	if len(completionResp.Choices) > 0 {
		out.Text = completionResp.Choices[0].Message.Content
		finishReason = completionResp.Choices[0].FinishReason
	}
	if completionResp.Model != "" {
		out.Model = completionResp.Model
	}
	out.Usage = phasr.TokenUsage{
		Prompt:     completionResp.Usage.PromptTokens,
		Completion: completionResp.Usage.CompletionTokens,
		Total:      completionResp.Usage.TotalTokens,
	}

	fields := []capitan.Field{
		phasr.ProviderKey.Field(p.name),
		phasr.ModelKey.Field(out.Model),
		phasr.PromptTokensKey.Field(out.Usage.Prompt),
		phasr.CompletionTokensKey.Field(out.Usage.Completion),
		phasr.TotalTokensKey.Field(out.Usage.Total),
		phasr.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		phasr.HTTPStatusCodeKey.Field(resp.StatusCode),
		phasr.ResponseIDKey.Field(completionResp.ID),
	}
	if finishReason != "" {
		fields = append(fields, phasr.ResponseFinishReasonKey.Field(finishReason))
	}
	capitan.Info(ctx, phasr.ProviderCallCompleted, fields...)

	return out, nil
}

func (p *Provider) emitFailed(ctx context.Context, model string, status int, start time.Time, msg string) {
	capitan.Error(ctx, phasr.ProviderCallFailed,
		phasr.ProviderKey.Field(p.name),
		phasr.ModelKey.Field(model),
		phasr.HTTPStatusCodeKey.Field(status),
		phasr.DurationMsKey.Field(int(time.Since(start).Milliseconds())),
		phasr.ErrorKey.Field(msg),
	)
}

// Request/Response types for chat-completions APIs

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
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
