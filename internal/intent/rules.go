package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/normalize"
)

// Rule is one intent with its match patterns. Patterns are matched as
// substrings of the canonical query text, so they are canonicalized the
// same way queries are before use.
type Rule struct {
	Intent   core.Intent `yaml:"intent"`
	Patterns []string    `yaml:"patterns"`
}

// RuleSet is an immutable, ordered set of intent rules. Declaration order
// breaks score ties: when two intents match the same number of patterns,
// the earlier one wins. Build a set through DefaultRules or LoadRules;
// never mutate one that is already in use.
type RuleSet struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"intents"`
}

// DefaultRules returns the built-in Persian pattern tables. Phrases users
// write with a ZWNJ or a space between the verb prefix and stem appear in
// both canonical shapes, since either can survive canonicalization.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		Version: "builtin",
		Rules: []Rule{
			{
				Intent: core.IntentPriceCheck,
				Patterns: []string{
					"قیمت", "چقدر", "چند تومان", "چنده", "هزینه", "چند پول",
				},
			},
			{
				Intent: core.IntentAvailability,
				Patterns: []string{
					"موجود", "در دسترس", "دارید", "هست", "وجود دار",
					"می‌تونم بخرم", "می تونم بخرم",
				},
			},
			{
				Intent: core.IntentFeatureInquiry,
				Patterns: []string{
					"مشخصات", "ویژگی", "دوربین", "باتری", "حافظه", "رم",
					"مگاپیکسل", "اینچ", "نسخه", "مدل",
				},
			},
			{
				Intent: core.IntentComparison,
				Patterns: []string{
					"فرق", "تفاوت", "مقایسه", "بهتر", "یا", "کدوم", "کدام",
				},
			},
			{
				Intent: core.IntentShipping,
				Patterns: []string{
					"ارسال", "تحویل", "چند روز", "زمان", "پست",
					"می‌رسه", "می رسه",
				},
			},
			{
				Intent: core.IntentPurchase,
				Patterns: []string{
					"می‌خوام بخرم", "می خوام بخرم", "خرید", "سفارش", "بخرم",
				},
			},
			{
				Intent: core.IntentGreeting,
				Patterns: []string{
					"سلام", "درود", "صبح بخیر", "عصر بخیر", "ممنون", "تشکر",
				},
			},
		},
	}
	return rs.canonicalized()
}

// LoadRules reads a rule file. The file fully replaces the built-in tables;
// it does not merge with them.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent rules %s: %w", path, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse intent rules %s: %w", path, err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("intent rules %s define no intents", path)
	}
	for _, r := range rs.Rules {
		if !r.Intent.Valid() {
			return nil, fmt.Errorf("intent rules %s: unknown intent %q", path, r.Intent)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("intent rules %s: intent %q has no patterns", path, r.Intent)
		}
	}
	return rs.canonicalized(), nil
}

// LoadRulesOrDefault loads the file when it exists and falls back to the
// built-in tables when it does not.
func LoadRulesOrDefault(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultRules(), nil
	}
	return LoadRules(path)
}

// canonicalized normalizes every pattern the same way queries are
// normalized, so substring matching always compares like with like.
// Patterns that collapse to the same canonical form are kept once; a
// duplicate would count twice toward the intent score.
func (rs *RuleSet) canonicalized() *RuleSet {
	out := &RuleSet{Version: rs.Version, Rules: make([]Rule, 0, len(rs.Rules))}
	for _, r := range rs.Rules {
		seen := make(map[string]bool, len(r.Patterns))
		patterns := make([]string, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			c := normalize.Canonicalize(p)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			patterns = append(patterns, c)
		}
		out.Rules = append(out.Rules, Rule{Intent: r.Intent, Patterns: patterns})
	}
	return out
}

// PatternsFor returns the canonical patterns for one intent, or nil.
func (rs *RuleSet) PatternsFor(intent core.Intent) []string {
	for _, r := range rs.Rules {
		if r.Intent == intent {
			return r.Patterns
		}
	}
	return nil
}
