package pipeline

import (
	"errors"
	"time"

	"github.com/zoobzio/phasr"
)

// Sentinel errors.
var (
	ErrStaleSubmission = errors.New("submission superseded by a newer prompt")
	ErrUpstreamNotDone = errors.New("upstream stage not done")
	ErrUnknownStage    = errors.New("unknown stage")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoSubmission    = errors.New("no prompt submitted")
	ErrRecordNotFound  = errors.New("stage record not found")
)

// Status is the lifecycle state of a stage: idle → loading → done | error.
type Status string

// Stage statuses.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// StageRecord is one invocation of a stage. Parsed and Err are never both set.
type StageRecord struct {
	ID              string
	StageID         string
	Class           string
	Provider        string
	Model           string
	SystemPrompt    string
	UserPrompt      string
	RequestBody     string
	RawResponseText string
	Parsed          any
	Duration        time.Duration
	Err             string
	ErrKind         phasr.FailureKind
	Status          Status
	StartedAt       time.Time
	Generation      uint64
}

// Loading reports whether the call is still in flight.
func (r StageRecord) Loading() bool {
	return r.Status == StatusLoading
}
