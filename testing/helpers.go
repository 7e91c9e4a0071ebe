// Package testing provides fakes and builders for exercising phasr services
// and pipelines without a live provider.
package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/phasr"
	"github.com/zoobzio/phasr/curve"
)

// Provider name constants for test helpers.
const (
	SequencedProviderName = "sequenced-mock"
	FailingProviderName   = "failing-mock"
)

// ResponseBuilder provides a fluent interface for constructing plan replies.
type ResponseBuilder struct {
	data map[string]any
}

// NewResponseBuilder creates a new ResponseBuilder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		data: make(map[string]any),
	}
}

// WithSubstance appends a substance to the plan.
func (b *ResponseBuilder) WithSubstance(name, dose, timing string) *ResponseBuilder {
	substances, _ := b.data["substances"].([]phasr.Substance)
	b.data["substances"] = append(substances, phasr.Substance{Name: name, Dose: dose, Timing: timing})
	return b
}

// WithCurve appends a curve with the given baseline.
func (b *ResponseBuilder) WithCurve(name string, baseline ...curve.PhasePoint) *ResponseBuilder {
	curves, _ := b.data["curves"].([]curve.Curve)
	b.data["curves"] = append(curves, curve.Curve{Name: name, Baseline: baseline})
	return b
}

// WithSummary sets the summary field.
func (b *ResponseBuilder) WithSummary(summary string) *ResponseBuilder {
	b.data["summary"] = summary
	return b
}

// WithField sets an arbitrary field.
func (b *ResponseBuilder) WithField(key string, value any) *ResponseBuilder {
	b.data[key] = value
	return b
}

// Build returns the JSON string representation of the response.
func (b *ResponseBuilder) Build() string {
	return string(b.BuildBytes())
}

// BuildBytes returns the JSON bytes of the response.
func (b *ResponseBuilder) BuildBytes() []byte {
	jsonBytes, err := json.Marshal(b.data)
	if err != nil {
		return []byte("{}")
	}
	return jsonBytes
}

// BuildFenced wraps the indented JSON in prose and a markdown fence, the way
// chat models tend to answer.
func (b *ResponseBuilder) BuildFenced() string {
	jsonBytes, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		jsonBytes = []byte("{}")
	}
	return "Sure, here it is:\n```json\n" + string(jsonBytes) + "\n```\nLet me know if you need changes."
}

// BuildMalformed returns the JSON with a trailing comma before the closing
// brace, which strict parsing rejects and repair accepts.
func (b *ResponseBuilder) BuildMalformed() string {
	s := b.Build()
	if len(b.data) == 0 {
		return s
	}
	return strings.TrimSuffix(s, "}") + ",}"
}

func stubResponse(req phasr.CallRequest, text string) *phasr.ProviderResponse {
	body, _ := json.Marshal(map[string]any{
		"model":  req.Model,
		"system": req.SystemPrompt,
		"user":   req.UserPrompt,
	})
	return &phasr.ProviderResponse{
		Text:        text,
		RequestBody: string(body),
		StatusCode:  200,
		Model:       req.Model,
		Usage: phasr.TokenUsage{
			Prompt:     100,
			Completion: 50,
			Total:      150,
		},
	}
}

// SequencedProvider returns responses in sequence.
// After all responses are exhausted, it returns the last response repeatedly.
type SequencedProvider struct {
	responses []string
	index     atomic.Int64
}

// NewSequencedProvider creates a provider that returns responses in order.
func NewSequencedProvider(responses ...string) *SequencedProvider {
	if len(responses) == 0 {
		responses = []string{`{"error": "no responses configured"}`}
	}
	return &SequencedProvider{
		responses: responses,
	}
}

// Call returns the next response in sequence.
func (p *SequencedProvider) Call(_ context.Context, req phasr.CallRequest) (*phasr.ProviderResponse, error) {
	idx := int(p.index.Add(1) - 1)
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return stubResponse(req, p.responses[idx]), nil
}

// Name returns the provider identifier.
func (*SequencedProvider) Name() string {
	return SequencedProviderName
}

// Family returns FamilyChat.
func (*SequencedProvider) Family() phasr.Family {
	return phasr.FamilyChat
}

// CallCount returns the number of calls made.
func (p *SequencedProvider) CallCount() int {
	return int(p.index.Load())
}

// Reset resets the call counter.
func (p *SequencedProvider) Reset() {
	p.index.Store(0)
}

// FailingProvider fails a specified number of times before succeeding.
// Failures are transport errors when a status is set, request errors otherwise.
type FailingProvider struct {
	failCount    int
	currentCount atomic.Int64
	successResp  string
	failError    string
	status       int
}

// NewFailingProvider creates a provider that fails failCount times then succeeds.
func NewFailingProvider(failCount int) *FailingProvider {
	return &FailingProvider{
		failCount:   failCount,
		successResp: NewResponseBuilder().WithSubstance("L-theanine", "200mg", "08:00").WithSummary("recovered").Build(),
		failError:   "simulated provider failure",
	}
}

// WithSuccessResponse sets the response returned after failures are exhausted.
func (p *FailingProvider) WithSuccessResponse(response string) *FailingProvider {
	p.successResp = response
	return p
}

// WithFailError sets the error message for failures.
func (p *FailingProvider) WithFailError(errMsg string) *FailingProvider {
	p.failError = errMsg
	return p
}

// WithStatus makes failures look like non-2xx replies with the given code.
// The fail message becomes the response body.
func (p *FailingProvider) WithStatus(code int) *FailingProvider {
	p.status = code
	return p
}

// Call fails until failCount is reached, then succeeds.
func (p *FailingProvider) Call(_ context.Context, req phasr.CallRequest) (*phasr.ProviderResponse, error) {
	count := p.currentCount.Add(1)
	if int(count) <= p.failCount {
		resp := stubResponse(req, "")
		if p.status != 0 {
			resp.StatusCode = p.status
			return resp, &phasr.HTTPError{Provider: FailingProviderName, StatusCode: p.status, Body: p.failError}
		}
		resp.StatusCode = 0
		return resp, fmt.Errorf("%s (attempt %d/%d)", p.failError, count, p.failCount)
	}
	return stubResponse(req, p.successResp), nil
}

// Name returns the provider identifier.
func (*FailingProvider) Name() string {
	return FailingProviderName
}

// Family returns FamilyChat.
func (*FailingProvider) Family() phasr.Family {
	return phasr.FamilyChat
}

// CallCount returns the number of calls made.
func (p *FailingProvider) CallCount() int {
	return int(p.currentCount.Load())
}

// Reset resets the call counter.
func (p *FailingProvider) Reset() {
	p.currentCount.Store(0)
}

// CallRecorder wraps a provider and records all calls made to it.
type CallRecorder struct {
	provider phasr.Provider
	calls    []phasr.CallRequest
	mu       sync.Mutex
}

// NewCallRecorder wraps a provider with call recording.
func NewCallRecorder(provider phasr.Provider) *CallRecorder {
	return &CallRecorder{
		provider: provider,
		calls:    make([]phasr.CallRequest, 0),
	}
}

// Call delegates to the wrapped provider and records the call.
func (r *CallRecorder) Call(ctx context.Context, req phasr.CallRequest) (*phasr.ProviderResponse, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()

	return r.provider.Call(ctx, req)
}

// Name returns the wrapped provider's name.
func (r *CallRecorder) Name() string {
	return r.provider.Name()
}

// Family returns the wrapped provider's family.
func (r *CallRecorder) Family() phasr.Family {
	return r.provider.Family()
}

// Calls returns a copy of all recorded calls.
func (r *CallRecorder) Calls() []phasr.CallRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]phasr.CallRequest, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// CallCount returns the number of calls recorded.
func (r *CallRecorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// LastCall returns the most recent call, or nil if no calls made.
func (r *CallRecorder) LastCall() *phasr.CallRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}
	call := r.calls[len(r.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make([]phasr.CallRequest, 0)
}

// LatencyProvider wraps a provider and adds artificial latency.
type LatencyProvider struct {
	provider phasr.Provider
	delay    time.Duration
}

// NewLatencyProvider wraps a provider with artificial delay.
// The delay is applied before each provider call and respects context cancellation.
func NewLatencyProvider(provider phasr.Provider, delay time.Duration) *LatencyProvider {
	return &LatencyProvider{
		provider: provider,
		delay:    delay,
	}
}

// Call adds latency then delegates to the wrapped provider.
func (p *LatencyProvider) Call(ctx context.Context, req phasr.CallRequest) (*phasr.ProviderResponse, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.provider.Call(ctx, req)
}

// Name returns the wrapped provider's name.
func (p *LatencyProvider) Name() string {
	return p.provider.Name()
}

// Family returns the wrapped provider's family.
func (p *LatencyProvider) Family() phasr.Family {
	return p.provider.Family()
}

// UsageAccumulator tracks total token usage across multiple calls.
type UsageAccumulator struct {
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
	callCount        atomic.Int64
}

// NewUsageAccumulator creates a new usage accumulator.
func NewUsageAccumulator() *UsageAccumulator {
	return &UsageAccumulator{}
}

// Add accumulates usage from a successful outcome. Failures are ignored.
func (a *UsageAccumulator) Add(outcome phasr.Outcome) {
	if success, ok := outcome.(*phasr.Success); ok {
		a.AddUsage(&success.Usage)
	}
}

// AddUsage accumulates usage directly.
func (a *UsageAccumulator) AddUsage(usage *phasr.TokenUsage) {
	if usage != nil {
		a.promptTokens.Add(int64(usage.Prompt))
		a.completionTokens.Add(int64(usage.Completion))
		a.totalTokens.Add(int64(usage.Total))
		a.callCount.Add(1)
	}
}

// PromptTokens returns total prompt tokens.
func (a *UsageAccumulator) PromptTokens() int {
	return int(a.promptTokens.Load())
}

// CompletionTokens returns total completion tokens.
func (a *UsageAccumulator) CompletionTokens() int {
	return int(a.completionTokens.Load())
}

// TotalTokens returns total tokens.
func (a *UsageAccumulator) TotalTokens() int {
	return int(a.totalTokens.Load())
}

// CallCount returns number of calls accumulated.
func (a *UsageAccumulator) CallCount() int {
	return int(a.callCount.Load())
}

// Reset clears all accumulated values.
func (a *UsageAccumulator) Reset() {
	a.promptTokens.Store(0)
	a.completionTokens.Store(0)
	a.totalTokens.Store(0)
	a.callCount.Store(0)
}
