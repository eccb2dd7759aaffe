// Package progress implements the progression rules of the course: which
// modules are unlocked, how quiz scores become completion records and how
// unlock codes move a learner forward.
package progress

import (
	"errors"
	"time"
)

const (
	// PassingScore is the minimum quiz score that earns a completion record.
	PassingScore = 80
	// DismissAfter is how long clients should show an unlock-code mismatch.
	DismissAfter = 3 * time.Second
)

var (
	ErrNotFound           = errors.New("progress not found")
	ErrModuleLocked       = errors.New("module is locked")
	ErrIncompleteAnswers  = errors.New("every question needs a valid answer")
	ErrUnlockCodeMismatch = errors.New("unlock code does not match")
)

// Learner identifies whose progress is being read or changed.
type Learner struct {
	ID   string
	Name string
}

// CompletionRecord is durable evidence that a learner passed a module quiz.
type CompletionRecord struct {
	ModuleID    string    `json:"module_id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
}

// Progress is one learner's position in the course.
type Progress struct {
	LearnerID       string                      `json:"learner_id"`
	LearnerName     string                      `json:"learner_name"`
	Completed       map[string]CompletionRecord `json:"completed"`
	CurrentModuleID string                      `json:"current_module_id"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	out := p
	out.Completed = make(map[string]CompletionRecord, len(p.Completed))
	for k, v := range p.Completed {
		out.Completed[k] = v
	}
	return out
}

// Record returns the completion record for a module, if any.
func (p Progress) Record(moduleID string) (CompletionRecord, bool) {
	r, ok := p.Completed[moduleID]
	return r, ok
}

// MismatchError is returned for a wrong unlock code. It matches
// ErrUnlockCodeMismatch with errors.Is.
type MismatchError struct {
	DismissAfter time.Duration
}

func (e *MismatchError) Error() string {
	return "El código ingresado no coincide con el obtenido en la evaluación."
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrUnlockCodeMismatch
}
