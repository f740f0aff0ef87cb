package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *ToolRegistry {
	r := NewToolRegistry()
	r.RegisterAll([]*ToolMetadata{
		{Name: "folding_ranges", Description: "Compute fold regions", Category: CategoryRanges, Keywords: []string{"outline"}},
		{Name: "folding_hidden", Description: "Compute hidden lines", Category: CategoryView},
		{Name: "tool_search", Description: "Search tools", Category: CategorySearch},
	})
	r.Register(nil)
	r.Register(&ToolMetadata{})
	return r
}

func TestToolRegistry_RegisterAndList(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, 3, r.Count())
	tool, ok := r.Get("folding_hidden")
	require.True(t, ok)
	assert.Equal(t, CategoryView, tool.Category)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"folding_hidden", "folding_ranges", "tool_search"}, names)
}

func TestToolRegistry_Search(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		query  string
		first  string
		score  int
		reason string
		count  int
	}{
		{"tool_search", "tool_search", 3, "exact name match", 1},
		{"FOLDING", "folding_hidden", 2, "name matches query", 2},
		{"hidden lines", "folding_hidden", 1, "description matches query", 1},
		{"outline", "folding_ranges", 1, "keyword matches query", 1},
		{"^folding_(r|x)", "folding_ranges", 2, "name matches query", 1},
		{"[invalid", "", 0, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results := r.Search(tt.query)
			require.Len(t, results, tt.count)
			if tt.count == 0 {
				return
			}
			assert.Equal(t, tt.first, results[0].Tool.Name)
			assert.Equal(t, tt.score, results[0].Score)
			assert.Equal(t, tt.reason, results[0].MatchReason)
		})
	}

	assert.Nil(t, r.Search(""))
	assert.Len(t, r.SearchByCategory("folding", CategoryRanges), 1)
	assert.Empty(t, r.SearchByCategory("folding", CategorySearch))
}
