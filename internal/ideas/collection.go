package ideas

import (
	"sort"
	"strings"
)

// MergeOne merges a finalized idea into a collection: a new idea is
// prepended (newest first); an idea with an existing id replaces the old
// entry in place so locally set ratings on other entries survive reloads.
// The input collection is not modified.
func MergeOne(idea Idea, col Collection) Collection {
	return MergeMany([]Idea{idea}, col)
}

// MergeMany merges a batch of ideas into a collection. New ideas are
// prepended in their given order; ideas whose id already exists replace
// the existing entry in place (last write wins).
func MergeMany(incoming []Idea, col Collection) Collection {
	byID := make(map[string]int, len(col))
	for i, existing := range col {
		byID[existing.ID] = i
	}

	merged := make(Collection, len(col))
	copy(merged, col)

	var fresh []Idea
	for _, idea := range incoming {
		if pos, ok := byID[idea.ID]; ok {
			merged[pos] = idea
			continue
		}
		fresh = append(fresh, idea)
	}

	if len(fresh) == 0 {
		return merged
	}

	result := make(Collection, 0, len(fresh)+len(merged))
	result = append(result, fresh...)
	result = append(result, merged...)
	return result
}

// SetRating returns a new collection with the rating applied to the idea
// with the given id.
func SetRating(col Collection, id string, rating int) (Collection, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	for i, idea := range col {
		if idea.ID != id {
			continue
		}
		updated := make(Collection, len(col))
		copy(updated, col)
		updated[i].Rating = rating
		return updated, nil
	}
	return nil, ErrIdeaNotFound
}

// FindByID returns the idea with the given id, if present.
func (c Collection) FindByID(id string) (Idea, bool) {
	for _, idea := range c {
		if idea.ID == id {
			return idea, true
		}
	}
	return Idea{}, false
}

// Filter selects ideas from a collection. Zero values match everything.
type Filter struct {
	Search    string // case-insensitive substring over title and content
	Category  string
	MinRating int
}

// Apply returns the ideas matching the filter, preserving order.
func (f Filter) Apply(col Collection) Collection {
	search := strings.ToLower(f.Search)
	var out Collection
	for _, idea := range col {
		if f.Category != "" && idea.Category != f.Category {
			continue
		}
		if idea.Rating < f.MinRating {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(idea.Title), search) &&
			!strings.Contains(strings.ToLower(idea.Content), search) {
			continue
		}
		out = append(out, idea)
	}
	return out
}

// SortBy returns a new collection ordered by the given field:
// "created_at" (newest first) or "rating" (highest first). Unknown fields
// leave the order unchanged.
func (c Collection) SortBy(field string) Collection {
	out := make(Collection, len(c))
	copy(out, c)
	switch field {
	case "created_at":
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case "rating":
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Rating > out[j].Rating
		})
	}
	return out
}
