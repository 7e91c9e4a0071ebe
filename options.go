package phasr

import (
	"time"

	"github.com/zoobzio/pipz"
)

// Option modifies a pipeline for reliability features.
// Failed calls are never retried; resubmission is the caller's decision.
type Option func(pipz.Chainable[*ServiceRequest]) pipz.Chainable[*ServiceRequest]

// WithTimeout adds timeout protection to the pipeline.
// Operations exceeding this duration will be canceled.
func WithTimeout(duration time.Duration) Option {
	return func(pipeline pipz.Chainable[*ServiceRequest]) pipz.Chainable[*ServiceRequest] {
		return pipz.NewTimeout("timeout", pipeline, duration)
	}
}

// WithRateLimit adds rate limiting to the pipeline.
// rps = requests per second, burst = burst capacity.
func WithRateLimit(rps float64, burst int) Option {
	return func(pipeline pipz.Chainable[*ServiceRequest]) pipz.Chainable[*ServiceRequest] {
		rateLimiter := pipz.NewRateLimiter[*ServiceRequest]("rate-limit", rps, burst)
		return pipz.NewSequence("rate-limited", rateLimiter, pipeline)
	}
}

// WithErrorHandler adds error handling to the pipeline.
// The handler observes failures; the original error is still returned.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*ServiceRequest]]) Option {
	return func(pipeline pipz.Chainable[*ServiceRequest]) pipz.Chainable[*ServiceRequest] {
		return pipz.NewHandle("error-handler", pipeline, handler)
	}
}
