package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownTool(t *testing.T) {
	t.Parallel()

	tool, ok := Lookup("flat_screwdriver")
	require.True(t, ok)
	assert.Equal(t, "flat_screwdriver", tool.ID)
	assert.NotEmpty(t, tool.Name)
	assert.NotEmpty(t, tool.Description)
}

func TestLookupUnknownTool(t *testing.T) {
	t.Parallel()

	_, ok := Lookup("not_a_real_tool")
	assert.False(t, ok)
	assert.False(t, Contains("not_a_real_tool"))
}

func TestIDsPreserveDefinitionOrder(t *testing.T) {
	t.Parallel()

	ids := IDs()
	require.Len(t, ids, Size())
	assert.Equal(t, "flat_screwdriver", ids[0])
	assert.Equal(t, "side_cutters", ids[len(ids)-1])

	// every id resolves through Lookup
	for _, id := range ids {
		assert.True(t, Contains(id), "id %s should be in catalog", id)
	}
}

func TestIDsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, id := range IDs() {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestToolsReturnsCopy(t *testing.T) {
	t.Parallel()

	tools := Tools()
	require.NotEmpty(t, tools)
	tools[0].ID = "mutated"

	fresh := Tools()
	assert.Equal(t, "flat_screwdriver", fresh[0].ID)
}

func TestNamesMatchTools(t *testing.T) {
	t.Parallel()

	names := Names()
	tools := Tools()
	require.Len(t, names, len(tools))
	for i := range tools {
		assert.Equal(t, tools[i].Name, names[i])
	}
}
