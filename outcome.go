package phasr

import (
	"context"
	"errors"

	"github.com/zoobzio/phasr/repair"
)

// FailureKind classifies why a call produced no structured value.
type FailureKind string

// Failure kinds.
const (
	FailureTransport       FailureKind = "transport"        // non-2xx HTTP status
	FailureRequest         FailureKind = "request"          // network error, timeout, bad input
	FailureNoJSON          FailureKind = "no_json"          // reply held no object or array
	FailureRepairExhausted FailureKind = "repair_exhausted" // JSON-shaped but unparseable
)

// Outcome is the result of one provider call: either *Success or *Failure.
type Outcome interface {
	outcome()
}

// Success carries the parsed value and the raw material it came from.
type Success struct {
	Parsed      any
	RawText     string
	RequestBody string
	Pass        repair.Pass
	Usage       TokenUsage
}

// Failure carries a classified error. Message is the provider body verbatim
// for transport failures and the error text otherwise.
type Failure struct {
	Kind        FailureKind
	Message     string
	StatusCode  int
	RawText     string
	RequestBody string
	Err         error
}

func (*Success) outcome() {}
func (*Failure) outcome() {}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps an error from a provider call or repair to its FailureKind.
func Classify(err error) FailureKind {
	var httpErr *HTTPError
	var noJSON *repair.NoJSONFoundError
	var exhausted *repair.ExhaustedError
	switch {
	case errors.As(err, &httpErr):
		return FailureTransport
	case errors.As(err, &noJSON):
		return FailureNoJSON
	case errors.As(err, &exhausted):
		return FailureRepairExhausted
	default:
		return FailureRequest
	}
}

// NewFailure builds a Failure from err and whatever the call recorded.
func NewFailure(err error, resp *ProviderResponse) *Failure {
	f := &Failure{Kind: Classify(err), Message: err.Error(), Err: err}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		f.Message = httpErr.Error()
		f.StatusCode = httpErr.StatusCode
	} else if errors.Is(err, context.DeadlineExceeded) {
		f.Message = "request timed out: " + err.Error()
	}

	if resp != nil {
		f.RawText = resp.Text
		f.RequestBody = resp.RequestBody
		if f.StatusCode == 0 {
			f.StatusCode = resp.StatusCode
		}
	}
	return f
}
