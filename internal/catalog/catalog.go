// Package catalog serves the read-only activity definitions slots bind to.
// The catalog is immutable after load, so lookups need no locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"timeledger/assets"
	"timeledger/internal/core"
)

type Catalog struct {
	byID       map[string]core.Activity
	ordered    []core.Activity
	categories []string
}

// New builds a catalog from explicit activities. Activities are validated
// and listed by descending hourly value, ties by name.
func New(activities []core.Activity) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]core.Activity, len(activities))}
	for i, a := range activities {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		if _, exists := c.byID[a.ID]; exists {
			return nil, fmt.Errorf("duplicate activity id %q", a.ID)
		}
		c.byID[a.ID] = a
		c.ordered = append(c.ordered, a)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		if c.ordered[i].HourlyValue != c.ordered[j].HourlyValue {
			return c.ordered[i].HourlyValue > c.ordered[j].HourlyValue
		}
		return c.ordered[i].Name < c.ordered[j].Name
	})
	seen := map[string]struct{}{}
	for _, a := range c.ordered {
		if _, ok := seen[a.Category]; ok {
			continue
		}
		seen[a.Category] = struct{}{}
		c.categories = append(c.categories, a.Category)
	}
	sort.Strings(c.categories)
	return c, nil
}

type seedActivity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	HourlyValue int64    `json:"hourly_value"`
	SearchTags  []string `json:"search_tags"`
}

// Load builds the catalog from the embedded seed file.
func Load() (*Catalog, error) {
	var seed []seedActivity
	if err := json.Unmarshal(assets.ActivitiesJSON, &seed); err != nil {
		return nil, fmt.Errorf("parse activity seed: %w", err)
	}
	activities := make([]core.Activity, 0, len(seed))
	for _, s := range seed {
		activities = append(activities, core.Activity{
			ID:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			HourlyValue: s.HourlyValue,
			SearchTags:  s.SearchTags,
		})
	}
	return New(activities)
}

// All returns every activity in listing order.
func (c *Catalog) All() []core.Activity {
	return append([]core.Activity(nil), c.ordered...)
}

// Get looks an activity up by ID.
func (c *Catalog) Get(id string) (core.Activity, error) {
	a, ok := c.byID[id]
	if !ok {
		return core.Activity{}, fmt.Errorf("%w: %s", core.ErrActivityNotFound, id)
	}
	return a, nil
}

// Search matches q case-insensitively against names, categories and search
// tags. An empty query returns the full listing.
func (c *Catalog) Search(q string) []core.Activity {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.All()
	}
	var out []core.Activity
	for _, a := range c.ordered {
		if matches(a, q) {
			out = append(out, a)
		}
	}
	return out
}

// Categories returns the distinct category names, sorted.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

func matches(a core.Activity, q string) bool {
	if strings.Contains(strings.ToLower(a.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Category), q) {
		return true
	}
	for _, tag := range a.SearchTags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
