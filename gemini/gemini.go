// Package gemini implements the contents wire family: a systemInstruction plus
// a contents list, with the API key passed as a query parameter.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/phasr"
)

// Provider implements the phasr Provider interface for Google Gemini API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gemini-2.5-flash", "gemini-2.5-pro"
	BaseURL string        // Optional, defaults to "https://generativelanguage.googleapis.com/v1beta"
	Timeout time.Duration // Optional, defaults to 120s
}

// New creates a new Gemini provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "gemini",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Family returns phasr.FamilyContents.
func (*Provider) Family() phasr.Family {
	return phasr.FamilyContents
}

// Call sends one system+user exchange to Gemini.
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
		phasr.FamilyKey.Field(string(phasr.FamilyContents)),
	)

	requestBody := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: in.UserPrompt}}},
		},
		GenerationConfig: &generationConfig{
			MaxOutputTokens: in.Tokens(),
		},
	}
	if in.SystemPrompt != "" {
		requestBody.SystemInstruction = &content{
			Parts: []part{{Text: in.SystemPrompt}},
		}
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	out := &phasr.ProviderResponse{RequestBody: string(jsonBody), Model: model}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?%s",
		p.baseURL, url.PathEscape(model), url.Values{"key": {apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the endpoint, which carries the key.
		p.emitFailed(ctx, model, 0, startTime, "request failed")
		return out, fmt.Errorf("gemini request failed: %w", redact(err))
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

	var generateResp generateContentResponse
	if err := json.Unmarshal(body, &generateResp); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}

	var finishReason string
	if len(generateResp.Candidates) > 0 {
		candidate := generateResp.Candidates[0]
		finishReason = candidate.FinishReason
		if len(candidate.Content.Parts) > 0 {
			out.Text = candidate.Content.Parts[0].Text
		}
	}
	if generateResp.ModelVersion != "" {
		out.Model = generateResp.ModelVersion
	}
	out.Usage = phasr.TokenUsage{
		Prompt:     generateResp.UsageMetadata.PromptTokenCount,
		Completion: generateResp.UsageMetadata.CandidatesTokenCount,
		Total:      generateResp.UsageMetadata.TotalTokenCount,
	}

	fields := []capitan.Field{
		phasr.ProviderKey.Field(p.name),
		phasr.ModelKey.Field(out.Model),
		phasr.PromptTokensKey.Field(out.Usage.Prompt),
		phasr.CompletionTokensKey.Field(out.Usage.Completion),
		phasr.TotalTokensKey.Field(out.Usage.Total),
		phasr.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		phasr.HTTPStatusCodeKey.Field(resp.StatusCode),
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

// redact strips the request URL from transport errors.
func redact(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}

// Request/Response types for Gemini API

type generateContentRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
