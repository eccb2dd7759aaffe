// Package grading asks an AI provider to review a learner's challenge code.
// Grade always returns a well-formed Result; failures are reported inside it.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amagraneronline/curso-python/internal/ai"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024

	unavailableOutput   = "Error al procesar el código."
	unavailableFeedback = "No se pudo conectar con el tutor de IA. Inténtalo de nuevo."
	budgetFeedback      = "Has agotado tu cupo de revisiones con el tutor de IA por ahora. Vuelve a intentarlo más tarde."
)

var (
	// ErrGradingUnavailable wraps every reason a verdict could not be produced.
	ErrGradingUnavailable = errors.New("grading service unavailable")
	ErrBudgetExceeded     = errors.New("token budget exceeded")
	ErrMalformedVerdict   = errors.New("malformed grading verdict")
)

// Request is one code submission for a module challenge.
type Request struct {
	LearnerID string
	Code      string
	Challenge string
}

// Result is the grading outcome. Failure is nil when the provider produced a
// valid verdict; otherwise it wraps ErrGradingUnavailable and Success is false.
type Result struct {
	Output   string `json:"output"`
	Feedback string `json:"feedback"`
	Success  bool   `json:"success"`
	Failure  error  `json:"-"`
}

// Unavailable reports whether the result is the fallback answer.
func (r Result) Unavailable() bool {
	return r.Failure != nil
}

// Config holds dependencies for the grader.
type Config struct {
	Provider  ai.Provider
	Budget    ai.BudgetChecker // optional
	Timeout   time.Duration    // per call (default 30s)
	MaxTokens int              // default 1024
}

// Grader reviews challenge submissions.
type Grader struct {
	provider  ai.Provider
	budget    ai.BudgetChecker
	timeout   time.Duration
	maxTokens int
}

// New creates a Grader. A nil Provider yields a grader that always answers
// with the unavailable result.
func New(cfg Config) *Grader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Grader{
		provider:  cfg.Provider,
		budget:    cfg.Budget,
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Grade reviews req and never fails: transport, budget and parse problems
// become an unavailable Result.
func (g *Grader) Grade(ctx context.Context, req Request) Result {
	res, err := g.grade(ctx, req)
	if err != nil {
		slog.Warn("grading unavailable",
			"learner_id", req.LearnerID,
			"error", err,
		)
		return unavailable(err)
	}
	return res
}

func (g *Grader) grade(ctx context.Context, req Request) (Result, error) {
	if g.provider == nil {
		return Result{}, ai.ErrNoProvider
	}

	if g.budget != nil && req.LearnerID != "" {
		ok, err := g.budget.Check(ctx, req.LearnerID)
		if err != nil {
			return Result{}, fmt.Errorf("check budget: %w", err)
		}
		if !ok {
			return Result{}, ErrBudgetExceeded
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, ai.CompletionRequest{
		Messages:    buildMessages(req),
		MaxTokens:   g.maxTokens,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("complete: %w", err)
	}

	if g.budget != nil && req.LearnerID != "" {
		if err := g.budget.Record(ctx, req.LearnerID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record token usage", "learner_id", req.LearnerID, "error", err)
		}
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		return Result{}, err
	}

	slog.Info("challenge graded",
		"learner_id", req.LearnerID,
		"success", v.IsSuccess,
		"model", resp.Model,
		"tokens", resp.TotalTokens(),
	)
	return Result{
		Output:   v.Output,
		Feedback: v.Feedback,
		Success:  v.IsSuccess,
	}, nil
}

func unavailable(cause error) Result {
	feedback := unavailableFeedback
	if errors.Is(cause, ErrBudgetExceeded) {
		feedback = budgetFeedback
	}
	return Result{
		Output:   unavailableOutput,
		Feedback: feedback,
		Success:  false,
		Failure:  fmt.Errorf("%w: %w", ErrGradingUnavailable, cause),
	}
}
