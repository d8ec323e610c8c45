// Package intent assigns a single commerce intent to every normalized
// query and extracts the entities the rest of the pipeline consumes.
// Classification is pure rule-table matching: no model calls, no I/O,
// deterministic for identical input.
package intent

import (
	"math"
	"strings"
	"sync"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// Classifier scores the loaded rule tables against canonical query text.
// Safe for concurrent use; Reload swaps the tables atomically and requests
// already classifying finish on the tables they started with.
type Classifier struct {
	mu        sync.RWMutex
	rules     *RuleSet
	threshold float64
	fallback  core.Intent
}

// NewClassifier builds a classifier over the given tables. Queries whose
// confidence lands below threshold are demoted to the fallback intent.
func NewClassifier(rules *RuleSet, threshold float64, fallback core.Intent) *Classifier {
	return &Classifier{rules: rules, threshold: threshold, fallback: fallback}
}

// Classify scores every rule against the canonical text. Each pattern found
// in the text adds one point to its intent, the highest score wins and ties
// keep the earlier rule. A query matching nothing gets the fallback intent.
func (c *Classifier) Classify(q core.NormalizedQuery) core.IntentResult {
	c.mu.RLock()
	rules, threshold, fallback := c.rules, c.threshold, c.fallback
	c.mu.RUnlock()

	text := q.CanonicalText
	detected := fallback
	bestScore := 0
	for _, r := range rules.Rules {
		score := 0
		for _, p := range r.Patterns {
			if strings.Contains(text, p) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			detected = r.Intent
		}
	}

	slots := ExtractSlots(text)

	confidence := 0.5
	if bestScore > 0 {
		confidence += 0.2
	}
	confidence += math.Min(float64(len(slots))*0.1, 0.3)
	confidence = math.Min(confidence, 1.0)

	if bestScore > 0 && confidence < threshold {
		logger.IntentDebug("Demoting %s to %s: confidence %.2f below threshold %.2f",
			detected, fallback, confidence, threshold)
		detected = fallback
	}

	logger.IntentDebug("Classified query as %s (score=%d, slots=%d, confidence=%.2f)",
		detected, bestScore, len(slots), confidence)

	return core.IntentResult{Intent: detected, Entities: slots, Confidence: confidence}
}

// Reload replaces the rule tables.
func (c *Classifier) Reload(rules *RuleSet) {
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	logger.IntentInfo("Intent rules reloaded (version=%q, intents=%d)", rules.Version, len(rules.Rules))
}

// RulesVersion reports the version tag of the active tables.
func (c *Classifier) RulesVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules.Version
}
