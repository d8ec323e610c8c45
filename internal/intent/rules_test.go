package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/porsa/internal/core"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRules(t, `
version: "v2"
intents:
  - intent: price_check
    patterns: ["قیمت", "چنده"]
  - intent: greeting
    patterns: ["سلام علیکم"]
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, "v2", rs.Version)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, core.IntentPriceCheck, rs.Rules[0].Intent)
	assert.Equal(t, []string{"قیمت", "چنده"}, rs.Rules[0].Patterns)
	assert.Equal(t, []string{"سلام علیکم"}, rs.PatternsFor(core.IntentGreeting))
	assert.Nil(t, rs.PatternsFor(core.IntentShipping))
}

func TestLoadRulesCanonicalizesPatterns(t *testing.T) {
	// The file writes the verb with a ZWNJ; matching happens over canonical
	// text where the ZWNJ is gone.
	path := writeRules(t, `
version: "v3"
intents:
  - intent: shipping
    patterns: ["می‌رسه", "میرسه", "کي ميرسد"]
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)

	// Both spellings collapse to one canonical pattern, kept once, and the
	// Arabic letters are folded to their Persian forms.
	assert.Equal(t, []string{"میرسه", "کی میرسد"}, rs.PatternsFor(core.IntentShipping))
}

func TestLoadRulesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "intents: [{{"},
		{name: "no intents", content: `version: "v1"`},
		{name: "unknown intent", content: "intents:\n  - intent: teleport\n    patterns: [\"x\"]\n"},
		{name: "no patterns", content: "intents:\n  - intent: greeting\n    patterns: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadRulesOrDefault(t *testing.T) {
	t.Run("empty path uses builtin", func(t *testing.T) {
		rs, err := LoadRulesOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, "builtin", rs.Version)
	})

	t.Run("missing file uses builtin", func(t *testing.T) {
		rs, err := LoadRulesOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "builtin", rs.Version)
	})

	t.Run("existing file wins", func(t *testing.T) {
		path := writeRules(t, "version: \"custom\"\nintents:\n  - intent: greeting\n    patterns: [\"سلام\"]\n")
		rs, err := LoadRulesOrDefault(path)
		require.NoError(t, err)
		assert.Equal(t, "custom", rs.Version)
	})
}

func TestDefaultRules(t *testing.T) {
	rs := DefaultRules()

	wantOrder := []core.Intent{
		core.IntentPriceCheck,
		core.IntentAvailability,
		core.IntentFeatureInquiry,
		core.IntentComparison,
		core.IntentShipping,
		core.IntentPurchase,
		core.IntentGreeting,
	}
	require.Len(t, rs.Rules, len(wantOrder))
	for i, r := range rs.Rules {
		assert.Equal(t, wantOrder[i], r.Intent)
		assert.NotEmpty(t, r.Patterns)
	}

	// ZWNJ spellings are stored canonically, next to the spaced variants.
	assert.Contains(t, rs.PatternsFor(core.IntentAvailability), "میتونم بخرم")
	assert.Contains(t, rs.PatternsFor(core.IntentShipping), "میرسه")
	assert.Contains(t, rs.PatternsFor(core.IntentShipping), "می رسه")
	assert.Contains(t, rs.PatternsFor(core.IntentPurchase), "میخوام بخرم")
}
