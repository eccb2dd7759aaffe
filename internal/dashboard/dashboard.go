// Package dashboard builds the read-only instructor views: per-learner
// reports, the classroom table, weekly activity and spreadsheet exports.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/amagraneronline/curso-python/internal/activity"
	"github.com/amagraneronline/curso-python/internal/auth"
	"github.com/amagraneronline/curso-python/internal/curriculum"
	"github.com/amagraneronline/curso-python/internal/progress"
)

// ErrLearnerNotFound is returned for unknown or non-learner accounts.
var ErrLearnerNotFound = errors.New("learner not found")

// Directory lists the accounts the dashboard reports on.
type Directory interface {
	Account(ctx context.Context, id string) (*auth.Account, error)
	Learners(ctx context.Context) ([]auth.Account, error)
}

// Config wires a Dashboard.
type Config struct {
	Catalog   *curriculum.Catalog
	Directory Directory
	Progress  progress.Repository
	Activity  activity.Logger
	Now       func() time.Time
	Location  *time.Location // day boundaries for WeeklyActivity, default UTC
}

// Dashboard reads progress and activity. It never writes.
type Dashboard struct {
	catalog   *curriculum.Catalog
	directory Directory
	progress  progress.Repository
	activity  activity.Logger
	now       func() time.Time
	loc       *time.Location
}

// New creates a Dashboard.
func New(cfg Config) *Dashboard {
	d := &Dashboard{
		catalog:   cfg.Catalog,
		directory: cfg.Directory,
		progress:  cfg.Progress,
		activity:  cfg.Activity,
		now:       cfg.Now,
		loc:       cfg.Location,
	}
	if d.activity == nil {
		d.activity = activity.NopLogger{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	return d
}

// ModuleRow is one bar of a learner's score chart.
type ModuleRow struct {
	ModuleID    string     `json:"module_id"`
	Title       string     `json:"title"`
	Score       int        `json:"score"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LearnerReport is the detailed view of one learner.
type LearnerReport struct {
	LearnerID       string      `json:"learner_id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	CurrentModuleID string      `json:"current_module_id"`
	Modules         []ModuleRow `json:"modules"`
	CompletedCount  int         `json:"completed_count"`
	TotalModules    int         `json:"total_modules"`
	CompletionRate  int         `json:"completion_rate"`
	AverageScore    int         `json:"average_score"`
	LastActive      *time.Time  `json:"last_active,omitempty"`
}

// LearnerReport returns the report for one learner account.
func (d *Dashboard) LearnerReport(ctx context.Context, learnerID string) (LearnerReport, error) {
	account, err := d.directory.Account(ctx, learnerID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return LearnerReport{}, ErrLearnerNotFound
		}
		return LearnerReport{}, fmt.Errorf("lookup learner: %w", err)
	}
	if account.Role != auth.RoleLearner {
		return LearnerReport{}, ErrLearnerNotFound
	}

	p, err := d.loadProgress(ctx, account.ID)
	if err != nil {
		return LearnerReport{}, err
	}
	return d.report(*account, p), nil
}

// Classroom returns a summary row for every learner, sorted by name.
func (d *Dashboard) Classroom(ctx context.Context) ([]LearnerReport, error) {
	learners, err := d.directory.Learners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}

	all, err := d.progress.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	byLearner := make(map[string]progress.Progress, len(all))
	for _, p := range all {
		byLearner[p.LearnerID] = p
	}

	rows := make([]LearnerReport, 0, len(learners))
	for _, a := range learners {
		p, ok := byLearner[a.ID]
		if !ok {
			p = progress.Progress{LearnerID: a.ID, LearnerName: a.Name}
		}
		rows = append(rows, d.report(a, p))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].LearnerID < rows[j].LearnerID
	})
	return rows, nil
}

// ClassAverage is the mean completion rate over rows, rounded.
func ClassAverage(rows []LearnerReport) int {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rows {
		sum += r.CompletionRate
	}
	return int(math.Round(float64(sum) / float64(len(rows))))
}

func (d *Dashboard) loadProgress(ctx context.Context, learnerID string) (progress.Progress, error) {
	p, err := d.progress.Load(ctx, learnerID)
	if errors.Is(err, progress.ErrNotFound) {
		return progress.Progress{LearnerID: learnerID}, nil
	}
	if err != nil {
		return progress.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return *p, nil
}

func (d *Dashboard) report(a auth.Account, p progress.Progress) LearnerReport {
	modules := d.catalog.Modules()
	r := LearnerReport{
		LearnerID:       a.ID,
		Name:            a.Name,
		Email:           a.Email,
		CurrentModuleID: p.CurrentModuleID,
		Modules:         make([]ModuleRow, 0, len(modules)),
		TotalModules:    len(modules),
	}

	scoreSum := 0
	for _, m := range modules {
		row := ModuleRow{ModuleID: m.ID, Title: m.Title}
		if rec, ok := p.Record(m.ID); ok {
			at := rec.CompletedAt
			row.Score = rec.Score
			row.Completed = true
			row.CompletedAt = &at
			r.CompletedCount++
			scoreSum += rec.Score
			if r.LastActive == nil || at.After(*r.LastActive) {
				r.LastActive = &at
			}
		}
		r.Modules = append(r.Modules, row)
	}

	if r.TotalModules > 0 {
		r.CompletionRate = int(math.Round(100 * float64(r.CompletedCount) / float64(r.TotalModules)))
	}
	if r.CompletedCount > 0 {
		r.AverageScore = int(math.Round(float64(scoreSum) / float64(r.CompletedCount)))
	}
	return r
}
