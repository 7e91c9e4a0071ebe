// Package phasr turns free-form prompts into structured intervention plans by
// routing them through interchangeable LLM providers.
//
// A Provider speaks one vendor wire format and returns the raw reply text plus
// the exact request body it sent. A Service wraps a Provider in a pipz pipeline
// that feeds the reply through the repair package, so callers always receive a
// parsed JSON value or a classified Failure. Three wire families are supported:
//
//   - FamilyMessages: system string + messages list (package anthropic)
//   - FamilyChat: system/user chat messages (package openai, two brands)
//   - FamilyContents: systemInstruction + contents (package gemini)
//
// All adapters, the service and the pipeline package emit capitan events for
// monitoring and debugging.
//
// Basic usage:
//
//	provider := anthropic.New(anthropic.Config{APIKey: key})
//	svc := phasr.NewService(provider, phasr.WithTimeout(90*time.Second))
//	switch out := svc.Call(ctx, phasr.CallRequest{UserPrompt: "..."}).(type) {
//	case *phasr.Success:
//		fmt.Println(out.Parsed)
//	case *phasr.Failure:
//		fmt.Println(out.Kind, out.Message)
//	}
package phasr

import (
	"context"
	"sync"

	"github.com/zoobzio/phasr/repair"
)

// Family identifies a provider wire format.
type Family string

// Supported wire families.
const (
	FamilyMessages Family = "messages"
	FamilyChat     Family = "chat"
	FamilyContents Family = "contents"
)

// DefaultMaxTokens is used when a CallRequest leaves MaxTokens unset.
const DefaultMaxTokens = 4096

// Provider defines the interface for LLM providers.
// Providers send a single system+user exchange and return the raw reply text.
type Provider interface {
	// Call sends the request and returns the reply. On a non-2xx status the
	// returned response is non-nil and carries the request body alongside an
	// *HTTPError.
	Call(ctx context.Context, req CallRequest) (*ProviderResponse, error)

	// Name returns the provider identifier (e.g., "anthropic", "grok")
	Name() string

	// Family returns the wire format the provider speaks.
	Family() Family
}

// CallRequest is one provider invocation. Empty Model or APIKey fall back to
// the adapter's configured defaults.
type CallRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	APIKey       string
	MaxTokens    int
}

// Tokens returns MaxTokens, or DefaultMaxTokens when unset.
func (r CallRequest) Tokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// TokenUsage contains token counts from a provider response.
type TokenUsage struct {
	Prompt     int // Tokens used by the prompt/messages
	Completion int // Tokens used by the completion/response
	Total      int // Total tokens used
}

// ProviderResponse contains the response from an LLM provider.
type ProviderResponse struct {
	Text        string     // Reply text extracted from the vendor envelope
	RequestBody string     // Exact JSON body that was sent
	StatusCode  int        // HTTP status of the reply
	Model       string     // Model that served the request
	Usage       TokenUsage // Token usage statistics
}

// ServiceRequest flows through the pipz pipeline.
// The provider stage fills the response fields and the repair stage fills the
// result. It is safe to read after a timeout while the provider call is still
// running.
type ServiceRequest struct {
	// Input fields
	Call CallRequest

	// Metadata fields
	RequestID    string // Unique identifier for this request
	ProviderName string // Name of the provider being used

	mu       sync.Mutex
	response *ProviderResponse
	result   repair.Result
	err      error
}

func (r *ServiceRequest) setResponse(resp *ProviderResponse, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp != nil {
		r.response = resp
	}
	r.err = err
}

func (r *ServiceRequest) setResult(res repair.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = res
	r.err = err
}

// Response returns the provider response recorded so far, or nil.
func (r *ServiceRequest) Response() *ProviderResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response
}

// Result returns the repaired value recorded so far.
func (r *ServiceRequest) Result() repair.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Err returns the error recorded by the last stage that ran.
func (r *ServiceRequest) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
