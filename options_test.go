package phasr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/pipz"
)

// TestWithTimeout tests the timeout option.
func TestWithTimeout(t *testing.T) {
	provider := NewMockProviderWithCallback(func(CallRequest) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return `{"late": true}`, nil
	})
	out := NewService(provider, WithTimeout(20*time.Millisecond)).Call(context.Background(), CallRequest{UserPrompt: "x"})

	failure, ok := out.(*Failure)
	if !ok {
		t.Fatalf("expected timeout failure, got %T", out)
	}
	if failure.Kind != FailureRequest {
		t.Errorf("expected request kind, got %s", failure.Kind)
	}
	if !errors.Is(failure, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", failure.Err)
	}
}

// TestWithRateLimit tests that the limiter passes requests within budget.
func TestWithRateLimit(t *testing.T) {
	svc := NewService(NewMockProvider(), WithRateLimit(1000, 5))
	for i := 0; i < 3; i++ {
		if _, ok := svc.Call(context.Background(), CallRequest{UserPrompt: "x"}).(*Success); !ok {
			t.Fatalf("call %d should succeed under the rate limit", i)
		}
	}
}

// TestWithErrorHandler tests that failures reach the handler.
func TestWithErrorHandler(t *testing.T) {
	var handled atomic.Bool
	handler := pipz.Apply("capture", func(_ context.Context, e *pipz.Error[*ServiceRequest]) (*pipz.Error[*ServiceRequest], error) {
		handled.Store(true)
		return e, nil
	})
	provider := NewMockProviderWithResponse("no json at all")
	_ = NewService(provider, WithErrorHandler(handler)).Call(context.Background(), CallRequest{UserPrompt: "x"})

	if !handled.Load() {
		t.Error("error handler was not invoked")
	}
}

// TestOptionComposition tests multiple options together.
func TestOptionComposition(t *testing.T) {
	svc := NewService(NewMockProvider(),
		WithRateLimit(1000, 5),
		WithTimeout(time.Second),
	)
	out := svc.Call(context.Background(), CallRequest{UserPrompt: "x"})
	if _, ok := out.(*Success); !ok {
		t.Fatalf("expected success, got %#v", out)
	}
}
