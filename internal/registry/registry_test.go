package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModels = []Model{
	{ID: "openai:gpt-4o-mini", Provider: "openai", Model: "gpt-4o-mini", CostTier: "cheap"},
	{ID: "anthropic:claude-3-5-sonnet", Provider: "anthropic", Model: "claude-3-5-sonnet-latest", CostTier: "medium"},
}

func TestNew_BuildsModelByStyleCatalog(t *testing.T) {
	r, err := New(testModels, "", false)
	require.NoError(t, err)

	agents := r.ListAgents()
	require.Len(t, agents, len(testModels)*5, "2 models x 5 builtin styles")

	// sequential stable ids, models outer loop
	assert.Equal(t, 1, agents[0].ID)
	assert.Equal(t, "openai:gpt-4o-mini", agents[0].ModelID)
	assert.Equal(t, "conservative", agents[0].StyleID)
	assert.Equal(t, 10, agents[9].ID)
	assert.Equal(t, "anthropic:claude-3-5-sonnet", agents[9].ModelID)

	for _, a := range agents {
		assert.True(t, strings.HasPrefix(a.SystemPrompt, BaseSystemPrompt), "agent %d", a.ID)
		assert.NotEmpty(t, a.Provider)
		assert.NotEmpty(t, a.CostTier)
	}
}

func TestNew_RequiresModels(t *testing.T) {
	_, err := New(nil, "", false)
	assert.Error(t, err)
}

func TestAgent_Lookup(t *testing.T) {
	r, err := New(testModels, "", false)
	require.NoError(t, err)

	a, ok := r.Agent(3)
	require.True(t, ok)
	assert.Equal(t, 3, a.ID)

	_, ok = r.Agent(999)
	assert.False(t, ok)
}

func TestListAgents_ReturnsCopy(t *testing.T) {
	r, err := New(testModels, "", false)
	require.NoError(t, err)

	agents := r.ListAgents()
	agents[0].StyleID = "mutated"

	again := r.ListAgents()
	assert.Equal(t, "conservative", again[0].StyleID)
}

func TestLoadStyles_FileOverridesAndExtends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	content := `
styles:
  aggressive:
    name: Very Aggressive
    prompt: |
      Swing for the fences.
  contrarian:
    name: Contrarian
    description: fades the crowd
    prompt: |
      Do the opposite of consensus.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := New(testModels[:1], path, false)
	require.NoError(t, err)

	agents := r.ListAgents()
	require.Len(t, agents, 6, "5 builtin + 1 extra style")

	byStyle := make(map[string]Agent)
	for _, a := range agents {
		byStyle[a.StyleID] = a
	}

	require.Contains(t, byStyle, "aggressive")
	assert.Contains(t, byStyle["aggressive"].SystemPrompt, "Swing for the fences.")

	require.Contains(t, byStyle, "contrarian")
	assert.Contains(t, byStyle["contrarian"].SystemPrompt, "opposite of consensus")

	// untouched builtin style keeps its builtin prompt
	require.Contains(t, byStyle, "conservative")
	assert.Contains(t, byStyle["conservative"].SystemPrompt, BaseSystemPrompt)
}

func TestLoadStyles_MissingFileFallsBack(t *testing.T) {
	r, err := New(testModels, filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Len(t, r.ListAgents(), 10)
}

func TestSnapshot_VersionAdvancesOnReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("styles: {}\n"), 0o644))

	r, err := New(testModels, path, false)
	require.NoError(t, err)

	before := r.Snapshot()
	require.NoError(t, r.reload())
	after := r.Snapshot()

	assert.Greater(t, after.Version, before.Version)
	assert.Equal(t, len(before.Agents), len(after.Agents))
}
