package curriculum

// DefaultEstimatedMinutes is used when a module does not declare its length.
const DefaultEstimatedMinutes = 15

// Module is one unit of the course: theory, a worked example, a practice
// challenge, a quiz and the unlock code revealed after passing the quiz.
type Module struct {
	ID               string     `yaml:"id" json:"id"`
	Position         int        `yaml:"position" json:"-"`
	Ordinal          int        `yaml:"-" json:"ordinal"`
	Title            string     `yaml:"title" json:"title"`
	Description      string     `yaml:"description" json:"description"`
	Theory           string     `yaml:"theory" json:"theory"`
	Example          string     `yaml:"example" json:"example"`
	Challenge        string     `yaml:"challenge" json:"challenge"`
	UnlockCode       string     `yaml:"unlock_code" json:"-"`
	EstimatedMinutes int        `yaml:"estimated_minutes" json:"estimated_minutes"`
	Questions        []Question `yaml:"questions" json:"questions"`
}

// clone returns a copy that shares no slices with m.
func (m Module) clone() Module {
	qs := make([]Question, len(m.Questions))
	for i, q := range m.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	m.Questions = qs
	return m
}

// Question is a single multiple-choice quiz item.
type Question struct {
	ID           string   `yaml:"id" json:"id"`
	Prompt       string   `yaml:"prompt" json:"prompt"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correct_index" json:"-"`
}

// IsCorrect reports whether the chosen option index is the right answer.
func (q Question) IsCorrect(choice int) bool {
	return choice == q.CorrectIndex
}

// HasOption reports whether choice is a valid option index.
func (q Question) HasOption(choice int) bool {
	return choice >= 0 && choice < len(q.Options)
}
