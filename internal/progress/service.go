package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amagraneronline/curso-python/internal/activity"
	"github.com/amagraneronline/curso-python/internal/curriculum"
	"github.com/amagraneronline/curso-python/internal/grading"
)

const courseCompletedMessage = "¡Increíble! Has completado todo el itinerario de fundamentos de Python."

// Grader reviews challenge code. *grading.Grader implements it.
type Grader interface {
	Grade(ctx context.Context, req grading.Request) grading.Result
}

// ServiceConfig holds dependencies for the progress service.
type ServiceConfig struct {
	Catalog    *curriculum.Catalog
	Repository Repository
	Events     activity.Logger  // optional
	Grader     Grader           // optional; nil always reports grading unavailable
	Now        func() time.Time // optional, for tests
}

// Service applies the progression rules and persists every change.
// Mutations for one learner are serialized; different learners never block
// each other.
type Service struct {
	catalog *curriculum.Catalog
	repo    Repository
	events  activity.Logger
	grader  Grader
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a progress service.
func NewService(cfg ServiceConfig) *Service {
	repo := cfg.Repository
	if repo == nil {
		repo = NewMemoryRepository()
	}
	events := cfg.Events
	if events == nil {
		events = activity.NopLogger{}
	}
	grader := cfg.Grader
	if grader == nil {
		grader = grading.New(grading.Config{})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog: cfg.Catalog,
		repo:    repo,
		events:  events,
		grader:  grader,
		now:     now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Catalog returns the course catalog the service works on.
func (s *Service) Catalog() *curriculum.Catalog {
	return s.catalog
}

func (s *Service) lock(learnerID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[learnerID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[learnerID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Load returns the learner's progress, creating and persisting a fresh one
// at the first module when none exists.
func (s *Service) Load(ctx context.Context, learner Learner) (Progress, error) {
	unlock := s.lock(learner.ID)
	defer unlock()
	return s.load(ctx, learner)
}

func (s *Service) load(ctx context.Context, learner Learner) (Progress, error) {
	stored, err := s.repo.Load(ctx, learner.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		p := Progress{
			LearnerID:       learner.ID,
			LearnerName:     learner.Name,
			Completed:       map[string]CompletionRecord{},
			CurrentModuleID: s.catalog.First().ID,
			UpdatedAt:       s.now(),
		}
		if err := s.repo.Save(ctx, p); err != nil {
			return Progress{}, fmt.Errorf("save new progress: %w", err)
		}
		slog.Info("progress initialized", "learner_id", learner.ID, "module_id", p.CurrentModuleID)
		return p, nil
	case err != nil:
		return Progress{}, fmt.Errorf("load progress: %w", err)
	}

	p := *stored
	if p.Completed == nil {
		p.Completed = map[string]CompletionRecord{}
	}
	if _, ok := s.catalog.Module(p.CurrentModuleID); !ok {
		slog.Warn("current module no longer in catalog, resetting",
			"learner_id", learner.ID,
			"module_id", p.CurrentModuleID,
		)
		p.CurrentModuleID = s.catalog.First().ID
		p.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, p); err != nil {
			return Progress{}, fmt.Errorf("save reset progress: %w", err)
		}
	}
	return p, nil
}

// CurrentModuleID returns the learner's current module without creating progress.
func (s *Service) CurrentModuleID(ctx context.Context, learnerID string) (string, error) {
	p, err := s.repo.Load(ctx, learnerID)
	if err != nil {
		return "", err
	}
	return p.CurrentModuleID, nil
}

// Overview is the learner's course sidebar.
type Overview struct {
	Progress Progress      `json:"progress"`
	Modules  []ModuleState `json:"modules"`
	Percent  int           `json:"percent"`
}

// Overview loads progress and summarizes every module's state.
func (s *Service) Overview(ctx context.Context, learner Learner) (Overview, error) {
	p, err := s.Load(ctx, learner)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Progress: p,
		Modules:  ModuleStates(s.catalog, p),
		Percent:  Percent(s.catalog, p),
	}, nil
}

// Module returns a module the learner is allowed to open.
func (s *Service) Module(ctx context.Context, learner Learner, moduleID string) (curriculum.Module, error) {
	m, ok := s.catalog.Module(moduleID)
	if !ok {
		return curriculum.Module{}, fmt.Errorf("%w: %s", curriculum.ErrModuleNotFound, moduleID)
	}
	p, err := s.Load(ctx, learner)
	if err != nil {
		return curriculum.Module{}, err
	}
	if !IsUnlocked(s.catalog, p, m.Ordinal) {
		return curriculum.Module{}, fmt.Errorf("%w: %s", ErrModuleLocked, moduleID)
	}
	return m, nil
}

// QuizResult is the outcome of one quiz submission.
type QuizResult struct {
	ModuleID string `json:"module_id"`
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	// UnlockCode is revealed only on a passing score.
	UnlockCode string `json:"unlock_code,omitempty"`
	// Record is the stored best record after this submission.
	Record   *CompletionRecord `json:"record,omitempty"`
	Improved bool              `json:"improved"`
}

// SubmitQuiz scores answers for a module and stores a qualifying result.
// answers maps question id to the chosen option index.
func (s *Service) SubmitQuiz(ctx context.Context, learner Learner, moduleID string, answers map[string]int) (QuizResult, error) {
	m, ok := s.catalog.Module(moduleID)
	if !ok {
		return QuizResult{}, fmt.Errorf("%w: %s", curriculum.ErrModuleNotFound, moduleID)
	}
	for _, q := range m.Questions {
		choice, ok := answers[q.ID]
		if !ok || !q.HasOption(choice) {
			return QuizResult{}, fmt.Errorf("%w: question %s", ErrIncompleteAnswers, q.ID)
		}
	}

	unlock := s.lock(learner.ID)
	defer unlock()

	p, err := s.load(ctx, learner)
	if err != nil {
		return QuizResult{}, err
	}
	if !IsUnlocked(s.catalog, p, m.Ordinal) {
		return QuizResult{}, fmt.Errorf("%w: %s", ErrModuleLocked, moduleID)
	}

	score := Score(m.Questions, answers)
	res := QuizResult{
		ModuleID: m.ID,
		Score:    score,
		Passed:   Passed(score),
		Correct:  CountCorrect(m.Questions, answers),
		Total:    len(m.Questions),
	}

	if !res.Passed {
		s.emit(ctx, activity.Event{LearnerID: learner.ID, Type: activity.QuizFailed, ModuleID: m.ID, Score: score})
		return res, nil
	}

	updated, improved := ApplyScore(p, m.ID, score, s.now())
	if improved {
		if err := s.repo.Save(ctx, updated); err != nil {
			return QuizResult{}, fmt.Errorf("save progress: %w", err)
		}
	}

	rec := updated.Completed[m.ID]
	res.Record = &rec
	res.Improved = improved
	res.UnlockCode = m.UnlockCode

	s.emit(ctx, activity.Event{LearnerID: learner.ID, Type: activity.QuizPassed, ModuleID: m.ID, Score: score})
	return res, nil
}

// UnlockResult is the outcome of a correct unlock code.
type UnlockResult struct {
	Outcome         UnlockOutcome `json:"outcome"`
	CurrentModuleID string        `json:"current_module_id"`
	View            string        `json:"view"`
	Message         string        `json:"message,omitempty"`
}

// SubmitUnlockCode advances the learner when code matches the current module.
// A wrong code returns a *MismatchError.
func (s *Service) SubmitUnlockCode(ctx context.Context, learner Learner, code string) (UnlockResult, error) {
	unlock := s.lock(learner.ID)
	defer unlock()

	p, err := s.load(ctx, learner)
	if err != nil {
		return UnlockResult{}, err
	}

	next, outcome, err := Advance(s.catalog, p, code)
	if err != nil {
		return UnlockResult{}, err
	}

	if outcome == CourseCompleted {
		s.emit(ctx, activity.Event{LearnerID: learner.ID, Type: activity.CourseCompleted, ModuleID: p.CurrentModuleID})
		return UnlockResult{
			Outcome:         CourseCompleted,
			CurrentModuleID: p.CurrentModuleID,
			View:            ViewTheory,
			Message:         courseCompletedMessage,
		}, nil
	}

	next.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, next); err != nil {
		return UnlockResult{}, fmt.Errorf("save progress: %w", err)
	}

	slog.Info("module unlocked", "learner_id", learner.ID, "module_id", next.CurrentModuleID)
	s.emit(ctx, activity.Event{LearnerID: learner.ID, Type: activity.ModuleUnlocked, ModuleID: next.CurrentModuleID})
	return UnlockResult{
		Outcome:         Advanced,
		CurrentModuleID: next.CurrentModuleID,
		View:            ViewTheory,
	}, nil
}

// ChallengeResult wraps a grading result with its relevance to the learner.
type ChallengeResult struct {
	ModuleID string         `json:"module_id"`
	Result   grading.Result `json:"result"`
	// Stale is set when the learner changed module while grading ran; the
	// result must not be applied to the new module.
	Stale bool `json:"stale"`
	// NextView is the view the client should open, if any.
	NextView string `json:"next_view,omitempty"`
}

// GradeChallenge grades code for a module challenge. The grading call runs
// outside the learner lock; the current module is compared before and after
// to detect stale results. Grading never changes progress.
func (s *Service) GradeChallenge(ctx context.Context, learner Learner, moduleID, code string) (ChallengeResult, error) {
	m, err := s.Module(ctx, learner, moduleID)
	if err != nil {
		return ChallengeResult{}, err
	}

	before, err := s.CurrentModuleID(ctx, learner.ID)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("snapshot current module: %w", err)
	}

	result := s.grader.Grade(ctx, grading.Request{
		LearnerID: learner.ID,
		Code:      code,
		Challenge: m.Challenge,
	})

	out := ChallengeResult{ModuleID: m.ID, Result: result}

	after, err := s.CurrentModuleID(ctx, learner.ID)
	if err != nil || after != before {
		slog.Info("discarding stale grading result",
			"learner_id", learner.ID,
			"module_id", m.ID,
			"before", before,
			"after", after,
		)
		out.Stale = true
		return out, nil
	}

	if result.Success && !result.Unavailable() {
		out.NextView = ViewQuiz
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, e activity.Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.events.LogEvent(ctx, e); err != nil {
		slog.Warn("failed to log activity event", "type", e.Type, "learner_id", e.LearnerID, "error", err)
	}
}
