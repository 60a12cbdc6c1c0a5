package catalog

import (
	"strings"

	"github.com/roach88/extkit/internal/codec"
)

// AllCategories matches every category in Filter.
const AllCategories = "All"

// Filter returns the records whose name or description contains query
// (case-insensitive) and whose category equals category. An empty query
// matches everything, as does the category AllCategories or "".
func Filter(records []codec.Record, query, category string) []codec.Record {
	q := strings.ToLower(query)
	out := make([]codec.Record, 0, len(records))
	for _, r := range records {
		if category != "" && category != AllCategories && r.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Categories lists AllCategories followed by each category in first-seen
// order.
func Categories(records []codec.Record) []string {
	out := []string{AllCategories}
	seen := map[string]bool{}
	for _, r := range records {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}

// CategoryCount is one row of Stats.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary counts records in total and per category.
type Summary struct {
	Total      int             `json:"total"`
	Categories []CategoryCount `json:"categories"`
	Newest     int64           `json:"newest,omitempty"`
}

// Stats summarizes records. Categories appear in first-seen order;
// uncategorized records are counted under "".
func Stats(records []codec.Record) Summary {
	s := Summary{Total: len(records), Categories: []CategoryCount{}}
	pos := map[string]int{}
	for _, r := range records {
		i, ok := pos[r.Category]
		if !ok {
			i = len(s.Categories)
			pos[r.Category] = i
			s.Categories = append(s.Categories, CategoryCount{Category: r.Category})
		}
		s.Categories[i].Count++
		if r.Timestamp > s.Newest {
			s.Newest = r.Timestamp
		}
	}
	return s
}
