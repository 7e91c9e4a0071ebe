package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/phasr"
	"golang.org/x/sync/errgroup"
)

// Caller performs one provider call. *phasr.Service implements it.
type Caller interface {
	Call(ctx context.Context, req phasr.CallRequest) phasr.Outcome
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, req phasr.CallRequest) phasr.Outcome

// Call invokes f.
func (f CallerFunc) Call(ctx context.Context, req phasr.CallRequest) phasr.Outcome {
	return f(ctx, req)
}

// Orchestrator runs stages against a Session.
type Orchestrator struct {
	session *Session
	catalog *Catalog
	stages  []Stage
	byID    map[string]Stage
	callers map[string]Caller
	clock   clockz.Clock
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for record timestamps and durations.
func WithClock(clock clockz.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// New creates an orchestrator. callers maps provider names to the Caller that
// serves them.
func New(session *Session, catalog *Catalog, stages []Stage, callers map[string]Caller, opts ...Option) (*Orchestrator, error) {
	ordered, err := Order(stages)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Stage, len(ordered))
	for _, s := range ordered {
		byID[s.ID] = s
	}
	o := &Orchestrator{
		session: session,
		catalog: catalog,
		stages:  ordered,
		byID:    byID,
		callers: callers,
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Session returns the session the orchestrator writes to.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Stages returns the stages in dependency order.
func (o *Orchestrator) Stages() []Stage {
	out := make([]Stage, len(o.stages))
	copy(out, o.stages)
	return out
}

// Submit starts a new submission and returns its generation token. Records
// of earlier submissions are dropped; their in-flight calls are left to
// finish and are discarded on completion.
func (o *Orchestrator) Submit(ctx context.Context, prompt string) uint64 {
	generation := o.session.Reset(prompt)
	capitan.Info(ctx, phasr.SubmissionStarted,
		phasr.GenerationKey.Field(int(generation)),
		phasr.PromptKey.Field(prompt),
	)
	return generation
}

// Execute submits prompt and runs every stage.
func (o *Orchestrator) Execute(ctx context.Context, prompt string) (uint64, error) {
	generation := o.Submit(ctx, prompt)
	return generation, o.Run(ctx, generation)
}

// Run schedules every stage of the given submission. Stages start as soon as
// all their upstream stages are done; a stage whose upstream failed is
// skipped. Stage failures are recorded, never returned. Run returns
// ErrStaleSubmission if a newer submission replaced this one.
func (o *Orchestrator) Run(ctx context.Context, generation uint64) error {
	if generation == 0 {
		return ErrNoSubmission
	}
	if generation != o.session.Generation() {
		return ErrStaleSubmission
	}

	finished := make(map[string]chan struct{}, len(o.stages))
	for _, s := range o.stages {
		finished[s.ID] = make(chan struct{})
	}

	var g errgroup.Group
	for _, s := range o.stages {
		g.Go(func() error {
			defer close(finished[s.ID])
			for _, dep := range s.DependsOn {
				<-finished[dep]
			}
			_, err := o.RunStage(ctx, generation, s.ID)
			if errors.Is(err, ErrUpstreamNotDone) {
				capitan.Emit(ctx, phasr.StageSkipped,
					phasr.StageKey.Field(s.ID),
					phasr.GenerationKey.Field(int(generation)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if generation != o.session.Generation() {
		return ErrStaleSubmission
	}
	capitan.Info(ctx, phasr.SubmissionCompleted,
		phasr.GenerationKey.Field(int(generation)),
	)
	return nil
}

// RunStage invokes one stage of the given submission and returns its record.
// Provider and repair failures are recorded with StatusError and returned as
// a *phasr.Failure. A completion that arrives after a newer submission is
// discarded and reported as ErrStaleSubmission.
func (o *Orchestrator) RunStage(ctx context.Context, generation uint64, stageID string) (StageRecord, error) {
	stage, ok := o.byID[stageID]
	if !ok {
		return StageRecord{}, fmt.Errorf("%w: %q", ErrUnknownStage, stageID)
	}
	if generation != o.session.Generation() {
		return StageRecord{}, ErrStaleSubmission
	}
	for _, dep := range stage.DependsOn {
		if st := o.session.Status(dep); st != StatusDone {
			return StageRecord{}, fmt.Errorf("%w: %s is %s", ErrUpstreamNotDone, dep, st)
		}
	}

	vars := o.templateVars(stage)
	pref, _ := o.session.Preference(stageID)
	cfg, resolveErr := o.catalog.Resolve(stageID, pref)
	if resolveErr != nil {
		cfg.Provider = pref.Provider
		cfg.Model = pref.Model
	}

	start := o.clock.Now()
	rec := StageRecord{
		ID:           uuid.New().String(),
		StageID:      stageID,
		Class:        stage.Class,
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		SystemPrompt: phasr.RenderTemplate(stage.SystemTemplate, vars),
		UserPrompt:   phasr.RenderTemplate(stage.UserTemplate, vars),
		Status:       StatusLoading,
		StartedAt:    start,
	}
	if err := o.session.begin(generation, rec); err != nil {
		return StageRecord{}, err
	}

	capitan.Info(ctx, phasr.StageStarted,
		phasr.StageKey.Field(stageID),
		phasr.GenerationKey.Field(int(generation)),
		phasr.ProviderKey.Field(cfg.Provider),
		phasr.ModelKey.Field(cfg.Model),
	)

	var outcome phasr.Outcome
	caller, ok := o.callers[cfg.Provider]
	switch {
	case resolveErr != nil:
		outcome = phasr.NewFailure(resolveErr, nil)
	case !ok:
		outcome = phasr.NewFailure(fmt.Errorf("%w: no caller for %q", ErrUnknownProvider, cfg.Provider), nil)
	default:
		outcome = caller.Call(ctx, phasr.CallRequest{
			SystemPrompt: rec.SystemPrompt,
			UserPrompt:   rec.UserPrompt,
			Model:        cfg.Model,
			APIKey:       cfg.APIKey,
			MaxTokens:    stage.MaxTokens,
		})
	}
	duration := o.clock.Now().Sub(start)

	committed, err := o.session.commit(generation, rec.ID, func(r *StageRecord) {
		r.Duration = duration
		switch out := outcome.(type) {
		case *phasr.Success:
			r.Status = StatusDone
			r.Parsed = out.Parsed
			r.RawResponseText = out.RawText
			r.RequestBody = out.RequestBody
		case *phasr.Failure:
			r.Status = StatusError
			r.Err = out.Message
			r.ErrKind = out.Kind
			r.RawResponseText = out.RawText
			r.RequestBody = out.RequestBody
		}
	})
	if err != nil {
		capitan.Emit(ctx, phasr.StageDiscarded,
			phasr.StageKey.Field(stageID),
			phasr.GenerationKey.Field(int(generation)),
		)
		return StageRecord{}, err
	}

	if failure, ok := outcome.(*phasr.Failure); ok {
		capitan.Error(ctx, phasr.StageFailed,
			phasr.StageKey.Field(stageID),
			phasr.GenerationKey.Field(int(generation)),
			phasr.ProviderKey.Field(cfg.Provider),
			phasr.ErrorKey.Field(failure.Message),
			phasr.ErrorKindKey.Field(string(failure.Kind)),
			phasr.DurationMsKey.Field(int(duration.Milliseconds())),
		)
		return committed, failure
	}

	capitan.Info(ctx, phasr.StageCompleted,
		phasr.StageKey.Field(stageID),
		phasr.GenerationKey.Field(int(generation)),
		phasr.ProviderKey.Field(cfg.Provider),
		phasr.ModelKey.Field(cfg.Model),
		phasr.DurationMsKey.Field(int(duration.Milliseconds())),
	)
	return committed, nil
}

// SwitchProvider moves a stage to another provider, remapping its model by
// tier, and stores the new preference.
func (o *Orchestrator) SwitchProvider(stageID, provider string) (Preference, error) {
	if _, ok := o.byID[stageID]; !ok {
		return Preference{}, fmt.Errorf("%w: %q", ErrUnknownStage, stageID)
	}
	current, ok := o.session.Preference(stageID)
	if !ok {
		cfg, err := o.catalog.Resolve(stageID, Preference{})
		if err == nil {
			current = Preference{Provider: cfg.Provider, Model: cfg.Model}
		}
	}
	next, err := o.catalog.SwitchProvider(stageID, current, provider)
	if err != nil {
		return Preference{}, err
	}
	o.session.SetPreference(stageID, next)
	return next, nil
}

// templateVars builds the variables for a stage: session vars, the schema,
// the prompt and the parsed output of every upstream stage.
func (o *Orchestrator) templateVars(stage Stage) map[string]string {
	vars := map[string]string{phasr.SchemaVar: phasr.PlanSchema()}
	for k, v := range o.session.Vars() {
		vars[k] = v
	}
	vars["prompt"] = o.session.Prompt()
	for _, id := range ancestors(o.byID, stage.ID) {
		rec, ok := o.session.Latest(id)
		if !ok || rec.Status != StatusDone {
			continue
		}
		out, err := json.Marshal(rec.Parsed)
		if err != nil {
			continue
		}
		vars[id] = string(out)
	}
	return vars
}
