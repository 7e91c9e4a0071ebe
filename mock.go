package phasr

import (
	"context"
	"encoding/json"
	"sync"
)

// MockPlanResponse is a fenced, slightly malformed plan reply of the kind
// models commonly produce.
const MockPlanResponse = "Here is the plan:\n```json\n" + `{
  "substances": [{"name": "Caffeine", "dose": "100mg", "timing": "08:00"},],
  "curves": [{"name": "alertness", "baseline": [{"hour": 0, "value": 20}, {"hour": 4, "value": 60}, {"hour": 8, "value": 30}]}],
  "summary": "Morning alertness support"
}` + "\n```"

// MockProvider simulates an LLM for testing. It records every request and
// answers through a callback.
type MockProvider struct {
	name     string
	family   Family
	callback func(CallRequest) (string, error)

	mu    sync.Mutex
	calls []CallRequest
}

// NewMockProvider creates a mock that always answers with MockPlanResponse.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithResponse(MockPlanResponse)
}

// NewMockProviderWithResponse creates a mock that always returns a specific response.
func NewMockProviderWithResponse(response string) *MockProvider {
	return NewMockProviderWithCallback(func(CallRequest) (string, error) {
		return response, nil
	})
}

// NewMockProviderWithCallback creates a mock that calls a function to generate responses.
func NewMockProviderWithCallback(callback func(CallRequest) (string, error)) *MockProvider {
	return &MockProvider{
		name:     "mock",
		family:   FamilyChat,
		callback: callback,
	}
}

// WithName renames the mock.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.name = name
	return m
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return m.name }

// Family returns the mock's nominal wire family.
func (m *MockProvider) Family() Family { return m.family }

// Call records req and answers through the callback. The request body is a
// JSON rendering of req without the API key.
func (m *MockProvider) Call(_ context.Context, req CallRequest) (*ProviderResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	body, err := json.Marshal(map[string]any{
		"model":      req.Model,
		"max_tokens": req.Tokens(),
		"system":     req.SystemPrompt,
		"user":       req.UserPrompt,
	})
	if err != nil {
		return nil, err
	}

	resp := &ProviderResponse{RequestBody: string(body), Model: req.Model}
	text, err := m.callback(req)
	if err != nil {
		return resp, err
	}
	resp.Text = text
	resp.StatusCode = 200
	return resp, nil
}

// Calls returns a copy of the requests seen so far.
func (m *MockProvider) Calls() []CallRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
