package phasr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zoobzio/phasr/curve"
)

// Substance is one dosed component of an intervention plan.
type Substance struct {
	Name   string `json:"name" desc:"Common name of the substance"`
	Dose   string `json:"dose,omitempty" desc:"Amount with unit, e.g. 100mg"`
	Timing string `json:"timing,omitempty" desc:"When to take it relative to the start, e.g. 08:00"`
	Class  string `json:"class,omitempty" desc:"Pharmacological class"`
}

// InterventionPlan is the structured record produced by the planning stages.
type InterventionPlan struct {
	Substances []Substance   `json:"substances" desc:"Substances in dosing order"`
	Curves     []curve.Curve `json:"curves,omitempty" desc:"Time-indexed effect curves"`
	Summary    string        `json:"summary,omitempty" desc:"One paragraph rationale"`
}

// Validate checks if the plan names at least one substance.
func (p InterventionPlan) Validate() error {
	if len(p.Substances) == 0 {
		return errors.New("plan has no substances")
	}
	for i, s := range p.Substances {
		if s.Name == "" {
			return fmt.Errorf("substance %d has no name", i)
		}
	}
	return nil
}

// Narrative is the lay-reader telling of a plan produced by the narration
// stage.
type Narrative struct {
	Beats []string `json:"beats" desc:"Short narrative beats in time order"`
}

// Validate checks that the narrative has at least one non-empty beat.
func (n Narrative) Validate() error {
	for _, b := range n.Beats {
		if b != "" {
			return nil
		}
	}
	return errors.New("narrative has no beats")
}

// Validator is implemented by stage output types that can check themselves.
type Validator interface {
	Validate() error
}

// Decode converts a repaired JSON value into T, validating it when T
// implements Validator.
func Decode[T any](parsed any) (T, error) {
	var out T
	raw, err := json.Marshal(parsed)
	if err != nil {
		return out, fmt.Errorf("failed to re-encode parsed value: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", out, err)
	}
	if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("invalid %T: %w", out, err)
		}
	}
	return out, nil
}

// DecodePlan converts a repaired JSON value into a validated plan.
func DecodePlan(parsed any) (*InterventionPlan, error) {
	plan, err := Decode[InterventionPlan](parsed)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
