package pipeline

import (
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// Session holds the orchestration state of one application session: the
// current submission, its stage records, per-stage provider preferences and
// extra template variables.
//
// Sessions are safe for concurrent use by multiple goroutines.
type Session struct {
	id          string
	generation  uint64
	prompt      string
	records     []*StageRecord
	vars        map[string]string
	preferences map[string]Preference
	mu          sync.RWMutex
}

// NewSession creates a new session with a unique ID and no submission.
func NewSession() *Session {
	return &Session{
		id:          uuid.New().String(),
		vars:        make(map[string]string),
		preferences: make(map[string]Preference),
	}
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Generation returns the current submission token. Zero means nothing has
// been submitted yet.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Prompt returns the prompt of the current submission.
func (s *Session) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Reset starts a new submission: all records are dropped and the generation
// token advances. Preferences and variables survive.
func (s *Session) Reset(prompt string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.prompt = prompt
	s.records = nil
	return s.generation
}

// SetVar sets an extra template variable.
func (s *Session) SetVar(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Vars returns a copy of the extra template variables.
func (s *Session) Vars() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.vars)
}

// SetPreference stores the provider/model choice for a stage.
func (s *Session) SetPreference(stageID string, pref Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[stageID] = pref
}

// Preference returns the stored choice for a stage, if any.
func (s *Session) Preference(stageID string) (Preference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.preferences[stageID]
	return pref, ok
}

// Records returns copies of all records of the current submission in
// creation order.
func (s *Session) Records() []StageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]StageRecord, len(s.records))
	for i, r := range s.records {
		records[i] = *r
	}
	return records
}

// History returns copies of every record of a stage, oldest first.
func (s *Session) History(stageID string) []StageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []StageRecord
	for _, r := range s.records {
		if r.StageID == stageID {
			records = append(records, *r)
		}
	}
	return records
}

// Latest returns the authoritative record of a stage.
func (s *Session) Latest(stageID string) (StageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].StageID == stageID {
			return *s.records[i], true
		}
	}
	return StageRecord{}, false
}

// Status returns the status of a stage's latest record, or StatusIdle.
func (s *Session) Status(stageID string) Status {
	if r, ok := s.Latest(stageID); ok {
		return r.Status
	}
	return StatusIdle
}

// Len returns the number of records in the current submission.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// begin appends rec if generation is still current.
func (s *Session) begin(generation uint64, rec StageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStaleSubmission
	}
	rec.Generation = generation
	s.records = append(s.records, &rec)
	return nil
}

// commit applies update to the record with the given id if generation is
// still current, and returns the updated copy.
func (s *Session) commit(generation uint64, recordID string, update func(*StageRecord)) (StageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return StageRecord{}, ErrStaleSubmission
	}
	for _, r := range s.records {
		if r.ID == recordID {
			update(r)
			return *r, nil
		}
	}
	return StageRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
}
