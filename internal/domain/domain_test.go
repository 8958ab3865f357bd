package domain

import "testing"

func TestParseDomain(t *testing.T) {
	tests := []struct {
		in      string
		want    Domain
		wantErr bool
	}{
		{"movies", DomainMovies, false},
		{"products", DomainProducts, false},
		{"music", DomainMusic, false},
		{"courses", DomainCourses, false},
		{"MOVIES", DomainMovies, false},
		{"books", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDomain(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDomain(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDomain(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDomain(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDomainIndex(t *testing.T) {
	for i, d := range AllDomains {
		if d.Index() != i {
			t.Errorf("%s.Index() = %d, want %d", d, d.Index(), i)
		}
	}
	if Domain("books").Index() != -1 {
		t.Error("unknown domain should index -1")
	}
}

func TestValidAction(t *testing.T) {
	for _, a := range []string{"view", "click", "like", "dislike", "rate", "purchase", "enroll", "complete", "skip", "time_spent"} {
		if !ValidAction(a) {
			t.Errorf("%q should be valid", a)
		}
	}
	if ValidAction("hover") {
		t.Error("hover should be invalid")
	}
}

func TestActionPositive(t *testing.T) {
	positives := []ActionKind{ActionLike, ActionPurchase, ActionEnroll, ActionComplete, ActionRate}
	for _, a := range positives {
		if !a.Positive() {
			t.Errorf("%s should be positive", a)
		}
	}
	for _, a := range []ActionKind{ActionView, ActionClick, ActionDislike, ActionSkip, ActionTimeSpent} {
		if a.Positive() {
			t.Errorf("%s should not be positive", a)
		}
	}
}

func TestItemHasCategory(t *testing.T) {
	it := Item{Categories: []string{"Sci-Fi", "Action"}}
	if !it.HasCategory("action") {
		t.Error("category match should be case-insensitive")
	}
	if it.HasCategory("Drama") {
		t.Error("unexpected category match")
	}
	if it.PrimaryCategory() != "Sci-Fi" {
		t.Errorf("primary = %q, want Sci-Fi", it.PrimaryCategory())
	}
}

func TestInteractionMetadataHelpers(t *testing.T) {
	i := Interaction{Metadata: map[string]any{"rating": 4.0, "duration": 120}}
	if r, ok := i.Rating(); !ok || r != 4 {
		t.Errorf("rating = %v %v, want 4 true", r, ok)
	}
	if d, ok := i.Duration(); !ok || d != 120 {
		t.Errorf("duration = %v %v, want 120 true", d, ok)
	}

	empty := Interaction{}
	if _, ok := empty.Rating(); ok {
		t.Error("missing rating should report false")
	}
	if _, ok := empty.Duration(); ok {
		t.Error("missing duration should report false")
	}
}

func TestLinearModelScore(t *testing.T) {
	m := &LinearModel{Bias: 0.1, ItemScore: 2, MoviesEngaged: 0.5, EngagedDomains: 0.25, EducationBoost: 1}
	f := RankFeatures{
		MoviesEngaged:  true,
		EngagedDomains: 2,
		ItemScore:      0.4,
		EducationBoost: true,
	}
	want := 0.1 + 2*0.4 + 0.5 + 0.25*2 + 1
	if got := m.Score(f); got != want {
		t.Errorf("score = %v, want %v", got, want)
	}
}
