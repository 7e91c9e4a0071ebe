// Package pipeline sequences the named generation stages of a submission.
//
// Each stage renders its prompt templates from the user prompt and the parsed
// output of its upstream stages, calls its resolved provider, and records the
// outcome in the Session. Stages on a dependency chain run strictly in order;
// independent stages run concurrently. Every submission carries a generation
// token, and results that complete after a newer submission are discarded.
package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifiers of the default pipeline.
const (
	Scout               = "scout"
	Strategist          = "strategist"
	ChessPlayer         = "chess-player"
	BiometricSpotter    = "biometric-spotter"
	GrandmasterRevision = "grandmaster-revision"
	Narration           = "narration"
)

// Stage is one named step bound to a provider/model pair at run time.
type Stage struct {
	ID             string   `yaml:"id"`
	Class          string   `yaml:"class"`
	DependsOn      []string `yaml:"depends_on"`
	SystemTemplate string   `yaml:"system"`
	UserTemplate   string   `yaml:"user"`
	MaxTokens      int      `yaml:"max_tokens"`
}

// DefaultStages returns the standard pipeline. Narration depends only on the
// chess player, so it runs alongside the spotter and revision chain.
func DefaultStages() []Stage {
	const schemaHint = "\n\nRespond with JSON only, matching this schema:\n{{schema}}"
	return []Stage{
		{
			ID:             Scout,
			Class:          "research",
			SystemTemplate: "You survey interventions relevant to a goal." + schemaHint,
			UserTemplate:   "Goal: {{prompt}}",
		},
		{
			ID:             Strategist,
			Class:          "planning",
			DependsOn:      []string{Scout},
			SystemTemplate: "You draft an intervention plan with effect curves." + schemaHint,
			UserTemplate:   "Goal: {{prompt}}\n\nResearch:\n{{scout}}",
		},
		{
			ID:             ChessPlayer,
			Class:          "planning",
			DependsOn:      []string{Strategist},
			SystemTemplate: "You refine dosing and timing of a draft plan." + schemaHint,
			UserTemplate:   "Goal: {{prompt}}\n\nDraft:\n{{strategist}}",
		},
		{
			ID:             BiometricSpotter,
			Class:          "biometric",
			DependsOn:      []string{ChessPlayer},
			SystemTemplate: "You flag biometric signals worth tracking for a plan." + schemaHint,
			UserTemplate:   "Plan:\n{{chess-player}}",
		},
		{
			ID:             GrandmasterRevision,
			Class:          "revision",
			DependsOn:      []string{BiometricSpotter},
			SystemTemplate: "You revise a plan given biometric feedback." + schemaHint,
			UserTemplate:   "Plan:\n{{chess-player}}\n\nSignals:\n{{biometric-spotter}}",
		},
		{
			ID:             Narration,
			Class:          "narrative",
			DependsOn:      []string{ChessPlayer},
			SystemTemplate: "You narrate a plan for a lay reader as JSON {\"beats\": [...]}.",
			UserTemplate:   "Plan:\n{{chess-player}}",
		},
	}
}

// Order validates stages and returns them in dependency order, keeping the
// declared order among independent stages.
func Order(stages []Stage) ([]Stage, error) {
	byID := make(map[string]Stage, len(stages))
	for _, s := range stages {
		if s.ID == "" {
			return nil, errors.New("stage with empty id")
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.ID)
		}
		byID[s.ID] = s
	}
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("stage %q depends on %w: %q", s.ID, ErrUnknownStage, dep)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(stages))
	ordered := make([]Stage, 0, len(stages))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through stage %q", id)
		}
		state[id] = visiting
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = visited
		ordered = append(ordered, byID[id])
		return nil
	}
	for _, s := range stages {
		if err := visit(s.ID); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// ancestors returns every stage id reachable through DependsOn from id.
func ancestors(byID map[string]Stage, id string) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range byID[cur].DependsOn {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			walk(dep)
		}
	}
	walk(id)
	return out
}
