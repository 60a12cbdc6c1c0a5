package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/extkit/internal/codec"
)

func sample() []codec.Record {
	return []codec.Record{
		{ID: "1", Name: "Stripe Bridge", Category: "Payment", Description: "card payments", Timestamp: 30},
		{ID: "2", Name: "Resolver", Category: "DID", Description: "identity lookup", Timestamp: 20},
		{ID: "3", Name: "Formatter", Category: "Tools", Description: "pretty PAYLOADS", Timestamp: 10},
		{ID: "4", Name: "Checkout", Category: "Payment", Description: "", Timestamp: 5},
	}
}

func TestFilter(t *testing.T) {
	records := sample()

	tests := []struct {
		name     string
		query    string
		category string
		want     []string
	}{
		{"everything", "", AllCategories, []string{"1", "2", "3", "4"}},
		{"empty category", "", "", []string{"1", "2", "3", "4"}},
		{"by category", "", "Payment", []string{"1", "4"}},
		{"name match case-insensitive", "resolver", AllCategories, []string{"2"}},
		{"description match", "pay", AllCategories, []string{"1", "3"}},
		{"query and category", "pay", "Tools", []string{"3"}},
		{"no match", "zzz", AllCategories, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(records, tt.query, tt.category)))
		})
	}
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"All", "Payment", "DID", "Tools"}, Categories(sample()))
	assert.Equal(t, []string{"All"}, Categories(nil))
}

func TestStats(t *testing.T) {
	s := Stats(sample())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, int64(30), s.Newest)
	assert.Equal(t, []CategoryCount{
		{Category: "Payment", Count: 2},
		{Category: "DID", Count: 1},
		{Category: "Tools", Count: 1},
	}, s.Categories)

	empty := Stats(nil)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.Categories)
}

func TestSortNewestFirst(t *testing.T) {
	records := []codec.Record{{ID: "a", Timestamp: 10}, {ID: "b", Timestamp: 30}, {ID: "c", Timestamp: 20}}
	SortNewestFirst(records)
	assert.Equal(t, []string{"b", "c", "a"}, ids(records))
}
