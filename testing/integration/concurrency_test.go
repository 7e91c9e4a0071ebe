package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/phasr"
	"github.com/zoobzio/phasr/pipeline"
	phasrt "github.com/zoobzio/phasr/testing"
)

func TestConcurrency_SharedService(t *testing.T) {
	svc := phasr.NewService(phasr.NewMockProvider())

	ctx := context.Background()
	var wg sync.WaitGroup
	var successCount atomic.Int64

	goroutines := 50
	callsPerGoroutine := 10

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				if _, ok := svc.Call(ctx, phasr.CallRequest{UserPrompt: "focus"}).(*phasr.Success); ok {
					successCount.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := successCount.Load(); got != int64(goroutines*callsPerGoroutine) {
		t.Errorf("expected %d successful calls, got %d", goroutines*callsPerGoroutine, got)
	}
}

func TestConcurrency_ResubmissionStorm(t *testing.T) {
	slow := phasrt.NewLatencyProvider(phasrt.NewSequencedProvider(planResponse()), 5*time.Millisecond)
	o := newPipeline(t, map[string]phasr.Provider{"anthropic": slow})

	type result struct {
		gen uint64
		err error
	}
	const submissions = 10
	results := make(chan result, submissions)

	var wg sync.WaitGroup
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen, err := o.Execute(context.Background(), "prompt")
			results <- result{gen, err}
		}()
	}
	wg.Wait()
	close(results)

	final := o.Session().Generation()
	if final != submissions {
		t.Errorf("expected generation %d, got %d", submissions, final)
	}
	for r := range results {
		switch {
		case r.gen == final && r.err != nil:
			t.Errorf("latest submission failed: %v", r.err)
		case r.err != nil && !errors.Is(r.err, pipeline.ErrStaleSubmission):
			t.Errorf("generation %d: unexpected error %v", r.gen, r.err)
		}
	}

	records := o.Session().Records()
	if len(records) != len(pipeline.DefaultStages()) {
		t.Errorf("expected one record per stage, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Generation != final {
			t.Errorf("%s: record from stale generation %d survived", rec.StageID, rec.Generation)
		}
		if rec.Status != pipeline.StatusDone {
			t.Errorf("%s: expected done, got %s", rec.StageID, rec.Status)
		}
	}
}

func TestConcurrency_ReadsDuringRun(t *testing.T) {
	slow := phasrt.NewLatencyProvider(phasrt.NewSequencedProvider(planResponse()), 2*time.Millisecond)
	o := newPipeline(t, map[string]phasr.Provider{"anthropic": slow})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Execute(context.Background(), "prompt")
	}()

	for {
		select {
		case <-done:
			if o.Session().Len() != len(pipeline.DefaultStages()) {
				t.Errorf("expected %d records, got %d", len(pipeline.DefaultStages()), o.Session().Len())
			}
			return
		default:
			for _, rec := range o.Session().Records() {
				if rec.Status == pipeline.StatusDone && rec.Parsed == nil {
					t.Fatalf("%s: done without a parsed value", rec.StageID)
				}
			}
			_ = o.Session().Status(pipeline.Narration)
		}
	}
}
