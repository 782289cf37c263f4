package catalog

import (
	"errors"
	"testing"

	"timeledger/internal/core"
)

func testActivities() []core.Activity {
	return []core.Activity{
		{ID: "deep-work", Name: "Deep work", Category: "Work", HourlyValue: 5000, SearchTags: []string{"focus", "coding"}},
		{ID: "email-triage", Name: "Email triage", Category: "Admin", HourlyValue: 400, SearchTags: []string{"inbox"}},
		{ID: "doomscrolling", Name: "Doomscrolling", Category: "Leisure", HourlyValue: -500, SearchTags: []string{"phone"}},
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	acts := testActivities()
	acts = append(acts, acts[0])
	if _, err := New(acts); err == nil {
		t.Fatalf("expected error for duplicate id")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New([]core.Activity{{ID: "", Name: "x", Category: "y"}}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestGet(t *testing.T) {
	c, err := New(testActivities())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a, err := c.Get("deep-work")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if a.HourlyValue != 5000 {
		t.Fatalf("wrong activity: %+v", a)
	}
	_, err = c.Get("nope")
	if !errors.Is(err, core.ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestAllOrderedByValue(t *testing.T) {
	c, _ := New(testActivities())
	all := c.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(all))
	}
	for i := 0; i < len(all)-1; i++ {
		if all[i].HourlyValue < all[i+1].HourlyValue {
			t.Fatalf("listing not ordered by value at %d", i)
		}
	}
}

func TestSearch(t *testing.T) {
	c, _ := New(testActivities())
	cases := []struct {
		q    string
		want int
	}{
		{"", 3},
		{"deep", 1},
		{"WORK", 1}, // category match, case-insensitive
		{"inbox", 1},
		{"phone", 1},
		{"zzz", 0},
	}
	for i, tc := range cases {
		got := c.Search(tc.q)
		if len(got) != tc.want {
			t.Fatalf("case %d: Search(%q) returned %d, want %d", i, tc.q, len(got), tc.want)
		}
	}
}

func TestCategories(t *testing.T) {
	c, _ := New(testActivities())
	cats := c.Categories()
	if len(cats) != 3 {
		t.Fatalf("expected 3 categories, got %v", cats)
	}
	if cats[0] != "Admin" || cats[2] != "Work" {
		t.Fatalf("expected sorted categories, got %v", cats)
	}
}

func TestLoadEmbeddedSeed(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	all := c.All()
	if len(all) == 0 {
		t.Fatalf("embedded seed is empty")
	}
	var hasNegative, hasTop bool
	for _, a := range all {
		if a.HourlyValue < 0 {
			hasNegative = true
		}
		if a.HourlyValue >= 25000 {
			hasTop = true
		}
	}
	if !hasNegative || !hasTop {
		t.Fatalf("seed should span the full value range")
	}
}
