package curriculum

import (
	"errors"
	"testing"
)

func testModule(id string, position int) Module {
	return Module{
		ID:         id,
		Position:   position,
		Title:      "Module " + id,
		Theory:     "theory",
		Challenge:  "challenge",
		UnlockCode: "CODE-" + id,
		Questions: []Question{
			{ID: id + "-q1", Prompt: "?", Options: []string{"a", "b"}, CorrectIndex: 1},
		},
	}
}

func TestNewCatalog_OrdersByPosition(t *testing.T) {
	cat, err := NewCatalog([]Module{testModule("C", 30), testModule("A", 10), testModule("B", 20)})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	for i, want := range []string{"A", "B", "C"} {
		m, ok := cat.At(i)
		if !ok || m.ID != want {
			t.Errorf("At(%d) = %q, want %q", i, m.ID, want)
		}
		if m.Ordinal != i {
			t.Errorf("At(%d).Ordinal = %d", i, m.Ordinal)
		}
	}
	if got := cat.IndexOf("B"); got != 1 {
		t.Errorf("IndexOf(B) = %d, want 1", got)
	}
	if got := cat.IndexOf("missing"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}
}

func TestNewCatalog_Invariants(t *testing.T) {
	dupQuestion := testModule("B", 2)
	dupQuestion.Questions[0].ID = "A-q1"

	lowerCode := testModule("A", 1)
	lowerCode.UnlockCode = "code-a"

	tests := []struct {
		name    string
		modules []Module
		wantErr error
	}{
		{"empty", nil, ErrEmptyCatalog},
		{"duplicate id", []Module{testModule("A", 1), testModule("A", 2)}, ErrInvalidModule},
		{"duplicate position", []Module{testModule("A", 1), testModule("B", 1)}, ErrInvalidModule},
		{"duplicate question id", []Module{testModule("A", 1), dupQuestion}, ErrInvalidModule},
		{"lowercase code", []Module{lowerCode}, ErrInvalidModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.modules)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewCatalog() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalog_Next(t *testing.T) {
	cat, err := NewCatalog([]Module{testModule("A", 1), testModule("B", 2)})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	next, ok := cat.Next("A")
	if !ok || next.ID != "B" {
		t.Errorf("Next(A) = %q, %v; want B, true", next.ID, ok)
	}
	if _, ok := cat.Next("B"); ok {
		t.Error("Next(B) should report no next module at the end of the course")
	}
	if _, ok := cat.Next("zzz"); ok {
		t.Error("Next(unknown) should be false")
	}
}

func TestCatalog_ModulesIsCopy(t *testing.T) {
	cat, _ := NewCatalog([]Module{testModule("A", 1)})
	mods := cat.Modules()
	mods[0].Title = "changed"

	m, _ := cat.Module("A")
	if m.Title == "changed" {
		t.Error("Modules() must not expose internal state")
	}
}

func TestCatalog_ReturnsDeepCopies(t *testing.T) {
	src := []Module{testModule("A", 1)}
	cat, err := NewCatalog(src)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	src[0].Questions[0].Options[0] = "from caller"

	mods := cat.Modules()
	mods[0].Questions[0].Prompt = "changed"
	mods[0].Questions[0].Options[1] = "changed"

	m, _ := cat.Module("A")
	m.Questions[0].CorrectIndex = 0
	m.Questions = append(m.Questions[:0], Question{ID: "other"})

	at, _ := cat.At(0)
	at.Questions[0].Options[0] = "changed"

	got := cat.First().Questions[0]
	if got.Prompt != "?" || got.CorrectIndex != 1 {
		t.Errorf("question = %+v, want catalog state untouched", got)
	}
	if got.Options[0] != "a" || got.Options[1] != "b" {
		t.Errorf("options = %v, want [a b]", got.Options)
	}
}

func TestQuestion_HasOption(t *testing.T) {
	q := Question{Options: []string{"a", "b", "c"}, CorrectIndex: 2}
	tests := []struct {
		choice int
		want   bool
	}{{-1, false}, {0, true}, {2, true}, {3, false}}
	for _, tt := range tests {
		if got := q.HasOption(tt.choice); got != tt.want {
			t.Errorf("HasOption(%d) = %v, want %v", tt.choice, got, tt.want)
		}
	}
	if !q.IsCorrect(2) || q.IsCorrect(1) {
		t.Error("IsCorrect() mismatch")
	}
}
