package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amagraneronline/curso-python/internal/curriculum"
)

// Views a learner moves through inside a module.
const (
	ViewTheory   = "theory"
	ViewPractice = "practice"
	ViewQuiz     = "quiz"
)

// UnlockOutcome tells what a correct unlock code did.
type UnlockOutcome string

const (
	Advanced        UnlockOutcome = "advanced"
	CourseCompleted UnlockOutcome = "course_completed"
)

// CurrentIndex returns the ordinal of the learner's current module, or 0 when
// the stored id is not in the catalog.
func CurrentIndex(cat *curriculum.Catalog, p Progress) int {
	if i := cat.IndexOf(p.CurrentModuleID); i >= 0 {
		return i
	}
	return 0
}

// IsUnlocked reports whether the module at ordinal is open to the learner:
// the first module always is, as is anything up to the current module, and
// a module whose immediate predecessor has a completion record.
func IsUnlocked(cat *curriculum.Catalog, p Progress, ordinal int) bool {
	if ordinal < 0 || ordinal >= cat.Len() {
		return false
	}
	if ordinal == 0 || ordinal <= CurrentIndex(cat, p) {
		return true
	}
	prev, _ := cat.At(ordinal - 1)
	_, done := p.Completed[prev.ID]
	return done
}

// CountCorrect returns how many questions were answered with their correct option.
func CountCorrect(questions []curriculum.Question, answers map[string]int) int {
	correct := 0
	for _, q := range questions {
		if choice, ok := answers[q.ID]; ok && q.IsCorrect(choice) {
			correct++
		}
	}
	return correct
}

// Score is round(100 * correct / total). A quiz with no questions scores 0.
func Score(questions []curriculum.Question, answers map[string]int) int {
	return percent(CountCorrect(questions, answers), len(questions))
}

// Passed reports whether score qualifies for a completion record.
func Passed(score int) bool {
	return score >= PassingScore
}

// ApplyScore records a qualifying score. The record is written only when none
// exists or the new score is strictly higher, so stored scores never drop.
// It returns the updated copy and whether anything changed.
func ApplyScore(p Progress, moduleID string, score int, now time.Time) (Progress, bool) {
	if !Passed(score) {
		return p, false
	}
	if prev, ok := p.Completed[moduleID]; ok && score <= prev.Score {
		return p, false
	}

	out := p.Clone()
	out.Completed[moduleID] = CompletionRecord{
		ModuleID:    moduleID,
		CompletedAt: now,
		Score:       score,
	}
	out.UpdatedAt = now
	return out, true
}

// NormalizeCode trims a submitted unlock code and upper-cases it.
func NormalizeCode(s string) string {
	// Casers carry state, so each call gets its own.
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// Advance matches code against the current module's unlock code. On a match
// the learner moves to the next module, or the course is reported complete
// when there is no next module; in that case progress is unchanged.
func Advance(cat *curriculum.Catalog, p Progress, code string) (Progress, UnlockOutcome, error) {
	current, ok := cat.Module(p.CurrentModuleID)
	if !ok {
		return p, "", fmt.Errorf("current module %q: %w", p.CurrentModuleID, curriculum.ErrModuleNotFound)
	}

	if NormalizeCode(code) != current.UnlockCode {
		return p, "", &MismatchError{DismissAfter: DismissAfter}
	}

	next, ok := cat.Next(current.ID)
	if !ok {
		return p, CourseCompleted, nil
	}

	out := p.Clone()
	out.CurrentModuleID = next.ID
	return out, Advanced, nil
}

// ModuleState is the per-module summary shown in the course sidebar.
type ModuleState struct {
	ID               string     `json:"id"`
	Ordinal          int        `json:"ordinal"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Locked           bool       `json:"locked"`
	Current          bool       `json:"current"`
	Completed        bool       `json:"completed"`
	Score            int        `json:"score"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ModuleStates lists every catalog module with its state for p.
func ModuleStates(cat *curriculum.Catalog, p Progress) []ModuleState {
	mods := cat.Modules()
	out := make([]ModuleState, 0, len(mods))
	for _, m := range mods {
		st := ModuleState{
			ID:               m.ID,
			Ordinal:          m.Ordinal,
			Title:            m.Title,
			Description:      m.Description,
			EstimatedMinutes: m.EstimatedMinutes,
			Locked:           !IsUnlocked(cat, p, m.Ordinal),
			Current:          m.ID == p.CurrentModuleID,
		}
		if rec, ok := p.Completed[m.ID]; ok {
			at := rec.CompletedAt
			st.Completed = true
			st.Score = rec.Score
			st.CompletedAt = &at
		}
		out = append(out, st)
	}
	return out
}

// Percent is the share of catalog modules with a completion record.
func Percent(cat *curriculum.Catalog, p Progress) int {
	done := 0
	for _, m := range cat.Modules() {
		if _, ok := p.Completed[m.ID]; ok {
			done++
		}
	}
	return percent(done, cat.Len())
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
