package phasr

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/phasr/repair"
	"github.com/zoobzio/pipz"
)

// CallResult is a successfully repaired provider reply.
type CallResult struct {
	Parsed      any         // decoded JSON value
	RawText     string      // reply text as returned by the provider
	RequestBody string      // exact body that was sent
	Pass        repair.Pass // which repair attempt parsed the reply
	Usage       TokenUsage
}

// Service sends requests to a single provider and repairs the replies.
// It wraps a pipz pipeline so reliability options compose around the call.
type Service struct {
	pipeline     pipz.Chainable[*ServiceRequest]
	providerName string
}

// NewService builds the provider-call then repair pipeline and applies opts
// in order, each wrapping the pipeline built so far.
func NewService(provider Provider, opts ...Option) *Service {
	var pipeline pipz.Chainable[*ServiceRequest] = pipz.NewSequence("phasr-call",
		NewTerminal(provider),
		NewRepairStage(),
	)
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return &Service{
		pipeline:     pipeline,
		providerName: provider.Name(),
	}
}

// NewTerminal creates the processor that calls the provider.
func NewTerminal(provider Provider) pipz.Chainable[*ServiceRequest] {
	return pipz.Apply("provider-call", func(ctx context.Context, req *ServiceRequest) (*ServiceRequest, error) {
		resp, err := provider.Call(ctx, req.Call)
		req.setResponse(resp, err)
		if err != nil {
			return req, err
		}
		return req, nil
	})
}

// NewRepairStage creates the processor that turns reply text into JSON.
// An empty reply fails here as no JSON found.
func NewRepairStage() pipz.Chainable[*ServiceRequest] {
	return pipz.Apply("repair", func(ctx context.Context, req *ServiceRequest) (*ServiceRequest, error) {
		var text string
		if resp := req.Response(); resp != nil {
			text = resp.Text
		}

		res, err := repair.Repair(text)
		req.setResult(res, err)
		if err != nil {
			capitan.Error(ctx, ResponseRepairFailed,
				RequestIDKey.Field(req.RequestID),
				ProviderKey.Field(req.ProviderName),
				ResponseKey.Field(text),
				ErrorKey.Field(err.Error()),
				ErrorKindKey.Field(string(Classify(err))),
			)
			return req, err
		}

		capitan.Info(ctx, ResponseRepaired,
			RequestIDKey.Field(req.RequestID),
			ProviderKey.Field(req.ProviderName),
			RepairPassKey.Field(res.Pass.String()),
		)
		return req, nil
	})
}

// Execute sends req through the pipeline and returns the repaired reply.
// When the call fails after the request was sent, the returned ProviderResponse
// still carries the request body for diagnostics.
func (s *Service) Execute(ctx context.Context, req CallRequest) (*CallResult, *ProviderResponse, error) {
	if req.UserPrompt == "" {
		return nil, nil, ErrEmptyPrompt
	}

	request := &ServiceRequest{
		Call:         req,
		RequestID:    uuid.New().String(),
		ProviderName: s.providerName,
	}

	capitan.Info(ctx, RequestStarted,
		RequestIDKey.Field(request.RequestID),
		ProviderKey.Field(s.providerName),
		ModelKey.Field(req.Model),
	)

	_, err := s.pipeline.Process(ctx, request)
	resp := request.Response()
	if err != nil {
		// The stage error is the most specific; pipz wraps it with path info.
		cause := request.Err()
		if cause == nil {
			cause = err
		}
		capitan.Error(ctx, RequestFailed,
			RequestIDKey.Field(request.RequestID),
			ProviderKey.Field(s.providerName),
			ErrorKey.Field(cause.Error()),
			ErrorKindKey.Field(string(Classify(cause))),
		)
		return nil, resp, fmt.Errorf("%s call failed: %w", s.providerName, cause)
	}

	res := request.Result()
	out := &CallResult{
		Parsed: res.Value,
		Pass:   res.Pass,
	}
	if resp != nil {
		out.RawText = resp.Text
		out.RequestBody = resp.RequestBody
		out.Usage = resp.Usage
	}

	capitan.Info(ctx, RequestCompleted,
		RequestIDKey.Field(request.RequestID),
		ProviderKey.Field(s.providerName),
		RepairPassKey.Field(res.Pass.String()),
		ResponseKey.Field(out.RawText),
	)

	return out, resp, nil
}

// Call is Execute folded into an Outcome.
func (s *Service) Call(ctx context.Context, req CallRequest) Outcome {
	res, resp, err := s.Execute(ctx, req)
	if err != nil {
		return NewFailure(err, resp)
	}
	return &Success{
		Parsed:      res.Parsed,
		RawText:     res.RawText,
		RequestBody: res.RequestBody,
		Pass:        res.Pass,
		Usage:       res.Usage,
	}
}
