package catalog

import (
	"sort"
	"strings"

	"ausflug-backend/internal/models"
)

// DefaultFeaturedLimit is the number of excursions on the landing view
const DefaultFeaturedLimit = 6

// Criteria narrows an excursion list. Empty strings and nil booleans are unset
// and take no part in the match.
type Criteria struct {
	Query     string
	Country   string
	Region    string
	Category  string
	IsFree    *bool
	IsOutdoor *bool
	HasGrill  *bool
}

// IsZero reports whether no predicate is active
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Query) == "" && c.Country == "" && c.Region == "" && c.Category == "" &&
		c.IsFree == nil && c.IsOutdoor == nil && c.HasGrill == nil
}

// Matches reports whether e satisfies every active predicate
func (c Criteria) Matches(e models.Excursion) bool {
	if q := strings.ToLower(strings.TrimSpace(c.Query)); q != "" {
		if !strings.Contains(strings.ToLower(e.Title), q) &&
			!strings.Contains(strings.ToLower(e.Description), q) &&
			!strings.Contains(strings.ToLower(e.Address), q) {
			return false
		}
	}
	if c.Country != "" && !strings.EqualFold(e.Country, c.Country) {
		return false
	}
	if c.Region != "" && !strings.EqualFold(e.Region, c.Region) {
		return false
	}
	if c.Category != "" && !strings.EqualFold(e.Category, c.Category) {
		return false
	}
	if c.IsFree != nil && e.IsFree != *c.IsFree {
		return false
	}
	if c.IsOutdoor != nil && e.IsOutdoor != *c.IsOutdoor {
		return false
	}
	if c.HasGrill != nil && e.HasGrill != *c.HasGrill {
		return false
	}
	return true
}

// Filter returns the excursions matching c in their original order
func Filter(excursions []models.Excursion, c Criteria) []models.Excursion {
	out := make([]models.Excursion, 0, len(excursions))
	for _, e := range excursions {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterAll returns the excursions matching every one of the criteria
func FilterAll(excursions []models.Excursion, criteria ...Criteria) []models.Excursion {
	out := make([]models.Excursion, 0, len(excursions))
next:
	for _, e := range excursions {
		for _, c := range criteria {
			if !c.Matches(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// Featured orders excursions by average rating, best first, keeping the
// original order among equal ratings, and keeps at most limit of them.
// A limit of zero or less keeps all.
func Featured(excursions []models.Excursion, limit int) []models.Excursion {
	out := make([]models.Excursion, len(excursions))
	copy(out, excursions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageRating > out[j].AverageRating
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Stats summarises a listing for the landing view
type Stats struct {
	Total      int `json:"total"`
	Categories int `json:"categories"`
	Authors    int `json:"authors"`
}

// Summarize counts excursions, distinct categories and distinct authors
func Summarize(excursions []models.Excursion) Stats {
	categories := make(map[string]struct{})
	authors := make(map[string]struct{})
	for _, e := range excursions {
		categories[e.Category] = struct{}{}
		authors[e.AuthorID] = struct{}{}
	}
	return Stats{
		Total:      len(excursions),
		Categories: len(categories),
		Authors:    len(authors),
	}
}
