package dashboard

import (
	"context"
	"fmt"
	"time"
)

const activityDays = 7

var weekdayLabels = [...]string{"Dom", "Lun", "Mar", "Mie", "Jue", "Vie", "Sab"}

// DayActivity counts the distinct learners with any event on one day.
type DayActivity struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Day      string `json:"day"`
	Learners int    `json:"learners"`
}

// WeeklyActivity returns the last seven days ending today, oldest first.
func (d *Dashboard) WeeklyActivity(ctx context.Context) ([]DayActivity, error) {
	now := d.now().In(d.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	start := today.AddDate(0, 0, -(activityDays - 1))

	events, err := d.activity.Since(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}

	seen := make([]map[string]struct{}, activityDays)
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}
	for _, e := range events {
		t := e.CreatedAt.In(d.loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, d.loc)
		i := daysBetween(start, day)
		if i < 0 || i >= activityDays {
			continue
		}
		seen[i][e.LearnerID] = struct{}{}
	}

	out := make([]DayActivity, activityDays)
	for i := range out {
		day := start.AddDate(0, 0, i)
		out[i] = DayActivity{
			Date:     day.Format(time.DateOnly),
			Day:      weekdayLabels[day.Weekday()],
			Learners: len(seen[i]),
		}
	}
	return out, nil
}

// daysBetween counts calendar days, which survives DST shifts where
// dividing durations by 24h would not.
func daysBetween(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
