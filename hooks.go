package phasr

import "github.com/zoobzio/capitan"

// Signals for hook events.
const (
	RequestStarted        = capitan.Signal("phasr.request.started")
	RequestCompleted      = capitan.Signal("phasr.request.completed")
	RequestFailed         = capitan.Signal("phasr.request.failed")
	ProviderCallStarted   = capitan.Signal("phasr.provider.call.started")
	ProviderCallCompleted = capitan.Signal("phasr.provider.call.completed")
	ProviderCallFailed    = capitan.Signal("phasr.provider.call.failed")
	ResponseRepaired      = capitan.Signal("phasr.response.repaired")
	ResponseRepairFailed  = capitan.Signal("phasr.response.failed")

	SubmissionStarted   = capitan.Signal("phasr.submission.started")
	SubmissionCompleted = capitan.Signal("phasr.submission.completed")
	StageStarted        = capitan.Signal("phasr.stage.started")
	StageCompleted      = capitan.Signal("phasr.stage.completed")
	StageFailed         = capitan.Signal("phasr.stage.failed")
	StageSkipped        = capitan.Signal("phasr.stage.skipped")
	StageDiscarded      = capitan.Signal("phasr.stage.discarded")
)

// Keys for hook event fields.
var (
	// Request identification.
	RequestIDKey = capitan.NewStringKey("phasr.request.id")
	FamilyKey    = capitan.NewStringKey("phasr.family")

	// Response data.
	ResponseKey   = capitan.NewStringKey("phasr.response")
	RepairPassKey = capitan.NewStringKey("phasr.repair.pass")

	// Error information.
	ErrorKey     = capitan.NewStringKey("phasr.error")
	ErrorKindKey = capitan.NewStringKey("phasr.error.kind")

	// Provider information.
	ProviderKey = capitan.NewStringKey("phasr.provider")
	ModelKey    = capitan.NewStringKey("phasr.model")

	// Provider metrics.
	PromptTokensKey     = capitan.NewIntKey("phasr.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("phasr.tokens.completion")
	TotalTokensKey      = capitan.NewIntKey("phasr.tokens.total")
	DurationMsKey       = capitan.NewIntKey("phasr.duration.ms")

	// HTTP/API metadata.
	HTTPStatusCodeKey       = capitan.NewIntKey("phasr.http.status.code")
	ResponseIDKey           = capitan.NewStringKey("phasr.response.id")
	ResponseFinishReasonKey = capitan.NewStringKey("phasr.response.finish.reason")

	// Pipeline.
	StageKey      = capitan.NewStringKey("phasr.stage")
	GenerationKey = capitan.NewIntKey("phasr.generation")
	PromptKey     = capitan.NewStringKey("phasr.prompt")
)
