package testing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/phasr"
	"github.com/zoobzio/phasr/curve"
	"github.com/zoobzio/phasr/repair"
)

func TestResponseBuilder_PlanResponse(t *testing.T) {
	response := NewResponseBuilder().
		WithSubstance("Caffeine", "100mg", "08:00").
		WithSubstance("L-theanine", "200mg", "08:00").
		WithCurve("alertness", curve.PhasePoint{Hour: 0, Value: 20}, curve.PhasePoint{Hour: 4, Value: 70}).
		WithSummary("calm focus").
		Build()

	var plan phasr.InterventionPlan
	if err := json.Unmarshal([]byte(response), &plan); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if len(plan.Substances) != 2 || plan.Substances[1].Name != "L-theanine" {
		t.Errorf("expected 2 substances, got %+v", plan.Substances)
	}
	if len(plan.Curves) != 1 || len(plan.Curves[0].Baseline) != 2 {
		t.Errorf("expected one curve with 2 points, got %+v", plan.Curves)
	}
	if plan.Summary != "calm focus" {
		t.Errorf("expected summary 'calm focus', got %q", plan.Summary)
	}
}

func TestResponseBuilder_CustomField(t *testing.T) {
	response := NewResponseBuilder().
		WithField("beats", []string{"wake", "work"}).
		Build()

	var data map[string]any
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	beats, ok := data["beats"].([]any)
	if !ok || len(beats) != 2 {
		t.Errorf("expected 2 beats, got %v", data["beats"])
	}
}

func TestResponseBuilder_BuildBytes(t *testing.T) {
	b := NewResponseBuilder().WithSummary("x")
	if string(b.BuildBytes()) != b.Build() {
		t.Error("Build and BuildBytes should agree")
	}
	if got := NewResponseBuilder().Build(); got != "{}" {
		t.Errorf("expected empty object, got %s", got)
	}
}

func TestResponseBuilder_NeedsRepair(t *testing.T) {
	b := NewResponseBuilder().WithSubstance("Magnesium", "300mg", "21:00")

	var strict map[string]any
	if err := json.Unmarshal([]byte(b.BuildMalformed()), &strict); err == nil {
		t.Error("malformed output should not parse strictly")
	}

	for name, text := range map[string]string{
		"fenced":    b.BuildFenced(),
		"malformed": b.BuildMalformed(),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := repair.Repair(text)
			if err != nil {
				t.Fatalf("repair failed: %v", err)
			}
			plan, err := phasr.DecodePlan(res.Value)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if plan.Substances[0].Name != "Magnesium" {
				t.Errorf("unexpected plan: %+v", plan)
			}
		})
	}
}

func TestSequencedProvider_ReturnsInOrder(t *testing.T) {
	provider := NewSequencedProvider("first", "second", "third")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "third"} {
		resp, err := provider.Call(ctx, phasr.CallRequest{UserPrompt: "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text != want {
			t.Errorf("expected %q, got %q", want, resp.Text)
		}
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", provider.CallCount())
	}
}

func TestSequencedProvider_RepeatsLastResponse(t *testing.T) {
	provider := NewSequencedProvider("only", "last")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = provider.Call(ctx, phasr.CallRequest{})
	}
	resp, _ := provider.Call(ctx, phasr.CallRequest{})
	if resp.Text != "last" {
		t.Errorf("expected 'last', got %q", resp.Text)
	}
}

func TestSequencedProvider_Reset(t *testing.T) {
	provider := NewSequencedProvider("a", "b")
	ctx := context.Background()

	_, _ = provider.Call(ctx, phasr.CallRequest{})
	provider.Reset()

	if provider.CallCount() != 0 {
		t.Errorf("expected 0 calls after reset, got %d", provider.CallCount())
	}
	resp, _ := provider.Call(ctx, phasr.CallRequest{})
	if resp.Text != "a" {
		t.Errorf("expected 'a' after reset, got %q", resp.Text)
	}
}

func TestSequencedProvider_EmptyResponses(t *testing.T) {
	resp, err := NewSequencedProvider().Call(context.Background(), phasr.CallRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text == "" {
		t.Error("expected a placeholder response")
	}
}

func TestSequencedProvider_RecordsRequestBody(t *testing.T) {
	resp, _ := NewSequencedProvider("{}").Call(context.Background(), phasr.CallRequest{
		UserPrompt: "hello",
		Model:      "m",
		APIKey:     "secret",
	})

	var body map[string]any
	if err := json.Unmarshal([]byte(resp.RequestBody), &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body["user"] != "hello" || body["model"] != "m" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, ok := body["api_key"]; ok {
		t.Error("request body should not carry the key")
	}
}

func TestFailingProvider_FailsThenSucceeds(t *testing.T) {
	provider := NewFailingProvider(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := provider.Call(ctx, phasr.CallRequest{}); err == nil {
			t.Errorf("call %d: expected failure", i+1)
		}
	}
	resp, err := provider.Call(ctx, phasr.CallRequest{})
	if err != nil {
		t.Fatalf("expected success on third call, got %v", err)
	}
	if resp.Text == "" {
		t.Error("expected success response")
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", provider.CallCount())
	}
}

func TestFailingProvider_Status(t *testing.T) {
	provider := NewFailingProvider(1).WithStatus(429).WithFailError(`{"error":"rate limited"}`)

	resp, err := provider.Call(context.Background(), phasr.CallRequest{UserPrompt: "x"})
	var httpErr *phasr.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *phasr.HTTPError, got %v", err)
	}
	if httpErr.StatusCode != 429 || err.Error() != `{"error":"rate limited"}` {
		t.Errorf("unexpected error: %v", httpErr)
	}
	if resp == nil || resp.RequestBody == "" {
		t.Error("failed call should still carry the request body")
	}
	if phasr.Classify(err) != phasr.FailureTransport {
		t.Errorf("expected transport classification, got %s", phasr.Classify(err))
	}
}

func TestFailingProvider_Reset(t *testing.T) {
	provider := NewFailingProvider(1)
	ctx := context.Background()

	_, _ = provider.Call(ctx, phasr.CallRequest{})
	provider.Reset()

	if _, err := provider.Call(ctx, phasr.CallRequest{}); err == nil {
		t.Error("expected failure after reset")
	}
}

func TestCallRecorder_RecordsCalls(t *testing.T) {
	recorder := NewCallRecorder(phasr.NewMockProvider())
	ctx := context.Background()

	_, _ = recorder.Call(ctx, phasr.CallRequest{SystemPrompt: "sys", UserPrompt: "one", Model: "m1"})
	_, _ = recorder.Call(ctx, phasr.CallRequest{UserPrompt: "two", MaxTokens: 10})

	calls := recorder.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].SystemPrompt != "sys" || calls[0].Model != "m1" {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[1].MaxTokens != 10 {
		t.Errorf("unexpected second call: %+v", calls[1])
	}
}

func TestCallRecorder_LastCall(t *testing.T) {
	recorder := NewCallRecorder(phasr.NewMockProvider())
	if recorder.LastCall() != nil {
		t.Error("expected nil before any call")
	}

	_, _ = recorder.Call(context.Background(), phasr.CallRequest{UserPrompt: "latest"})
	if last := recorder.LastCall(); last == nil || last.UserPrompt != "latest" {
		t.Errorf("unexpected last call: %+v", last)
	}
}

func TestCallRecorder_Reset(t *testing.T) {
	recorder := NewCallRecorder(phasr.NewMockProvider())
	_, _ = recorder.Call(context.Background(), phasr.CallRequest{UserPrompt: "x"})
	recorder.Reset()

	if recorder.CallCount() != 0 {
		t.Errorf("expected 0 calls after reset, got %d", recorder.CallCount())
	}
}

func TestCallRecorder_ConcurrentSafety(t *testing.T) {
	recorder := NewCallRecorder(phasr.NewMockProvider())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = recorder.Call(ctx, phasr.CallRequest{UserPrompt: "x"})
		}()
	}
	wg.Wait()

	if recorder.CallCount() != 50 {
		t.Errorf("expected 50 calls, got %d", recorder.CallCount())
	}
}

func TestLatencyProvider_AddsLatency(t *testing.T) {
	provider := NewLatencyProvider(phasr.NewMockProvider(), 20*time.Millisecond)

	start := time.Now()
	_, err := provider.Call(context.Background(), phasr.CallRequest{UserPrompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected at least 20ms, got %v", elapsed)
	}
}

func TestLatencyProvider_RespectsContextCancellation(t *testing.T) {
	provider := NewLatencyProvider(phasr.NewMockProvider(), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := provider.Call(ctx, phasr.CallRequest{UserPrompt: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestUsageAccumulator_AccumulatesUsage(t *testing.T) {
	acc := NewUsageAccumulator()
	acc.AddUsage(&phasr.TokenUsage{Prompt: 10, Completion: 5, Total: 15})
	acc.AddUsage(&phasr.TokenUsage{Prompt: 20, Completion: 10, Total: 30})
	acc.AddUsage(nil)

	if acc.PromptTokens() != 30 || acc.CompletionTokens() != 15 || acc.TotalTokens() != 45 {
		t.Errorf("unexpected totals: %d/%d/%d", acc.PromptTokens(), acc.CompletionTokens(), acc.TotalTokens())
	}
	if acc.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", acc.CallCount())
	}
}

func TestUsageAccumulator_AddFromOutcome(t *testing.T) {
	acc := NewUsageAccumulator()
	svc := phasr.NewService(NewSequencedProvider(NewResponseBuilder().WithSummary("ok").Build()))

	acc.Add(svc.Call(context.Background(), phasr.CallRequest{UserPrompt: "x"}))
	acc.Add(&phasr.Failure{Kind: phasr.FailureRequest})

	if acc.CallCount() != 1 || acc.TotalTokens() != 150 {
		t.Errorf("expected one call with 150 tokens, got %d calls and %d tokens", acc.CallCount(), acc.TotalTokens())
	}
}

func TestUsageAccumulator_Reset(t *testing.T) {
	acc := NewUsageAccumulator()
	acc.AddUsage(&phasr.TokenUsage{Prompt: 1, Completion: 1, Total: 2})
	acc.Reset()

	if acc.TotalTokens() != 0 || acc.CallCount() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestUsageAccumulator_ConcurrentSafety(t *testing.T) {
	acc := NewUsageAccumulator()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.AddUsage(&phasr.TokenUsage{Prompt: 1, Completion: 1, Total: 2})
		}()
	}
	wg.Wait()

	if acc.TotalTokens() != 200 {
		t.Errorf("expected 200 tokens, got %d", acc.TotalTokens())
	}
}

func TestProviderNames(t *testing.T) {
	if NewSequencedProvider().Name() != SequencedProviderName {
		t.Error("unexpected sequenced provider name")
	}
	if NewFailingProvider(0).Name() != FailingProviderName {
		t.Error("unexpected failing provider name")
	}
	inner := phasr.NewMockProvider().WithName("inner")
	if NewCallRecorder(inner).Name() != "inner" || NewLatencyProvider(inner, 0).Name() != "inner" {
		t.Error("wrappers should report the wrapped provider's name")
	}
	if NewCallRecorder(inner).Family() != inner.Family() {
		t.Error("wrappers should report the wrapped provider's family")
	}
}
