// Package anthropic implements the messages wire family: a top-level system
// string plus a list of role/content messages, authenticated by x-api-key.
package anthropic

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

// APIVersion is sent in the anthropic-version header.
const APIVersion = "2023-06-01"

// Provider implements the phasr Provider interface for the Anthropic API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Anthropic provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "claude-sonnet-4-20250514", "claude-3-5-haiku-20241022"
	BaseURL string        // Optional, defaults to "https://api.anthropic.com/v1"
	Timeout time.Duration // Optional, defaults to 120s
}

// New creates a new Anthropic provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "anthropic",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Family returns phasr.FamilyMessages.
func (*Provider) Family() phasr.Family {
	return phasr.FamilyMessages
}

// Call sends one system+user exchange to Anthropic.
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
		phasr.FamilyKey.Field(string(phasr.FamilyMessages)),
	)

	requestBody := messagesRequest{
		Model:     model,
		MaxTokens: in.Tokens(),
		System:    in.SystemPrompt,
		Messages: []message{
			{Role: "user", Content: in.UserPrompt},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	out := &phasr.ProviderResponse{RequestBody: string(jsonBody), Model: model}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", APIVersion)

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

	var messagesResp messagesResponse
	if err := json.Unmarshal(body, &messagesResp); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}

	// A missing content block yields empty text; repair reports it as no JSON.
	if len(messagesResp.Content) > 0 {
		out.Text = messagesResp.Content[0].Text
	}
	if messagesResp.Model != "" {
		out.Model = messagesResp.Model
	}
	out.Usage = phasr.TokenUsage{
		Prompt:     messagesResp.Usage.InputTokens,
		Completion: messagesResp.Usage.OutputTokens,
		Total:      messagesResp.Usage.InputTokens + messagesResp.Usage.OutputTokens,
	}

	fields := []capitan.Field{
		phasr.ProviderKey.Field(p.name),
		phasr.ModelKey.Field(out.Model),
		phasr.PromptTokensKey.Field(out.Usage.Prompt),
		phasr.CompletionTokensKey.Field(out.Usage.Completion),
		phasr.TotalTokensKey.Field(out.Usage.Total),
		phasr.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		phasr.HTTPStatusCodeKey.Field(resp.StatusCode),
		phasr.ResponseIDKey.Field(messagesResp.ID),
	}
	if messagesResp.StopReason != "" {
		fields = append(fields, phasr.ResponseFinishReasonKey.Field(messagesResp.StopReason))
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

// Request/Response types for Anthropic API

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
