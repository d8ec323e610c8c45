package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/normalize"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0, core.IntentGeneralInquiry)

	tests := []struct {
		name           string
		raw            string
		wantIntent     core.Intent
		wantConfidence float64
		wantEntities   map[string]interface{}
	}{
		{
			name:           "price question with brand",
			raw:            "قیمت گوشی سامسونگ چنده؟",
			wantIntent:     core.IntentPriceCheck,
			wantConfidence: 0.8,
			wantEntities:   map[string]interface{}{"brand": "سامسونگ"},
		},
		{
			name:           "availability outranks the greeting prefix",
			raw:            "سلام، این گوشی موجوده؟",
			wantIntent:     core.IntentAvailability,
			wantConfidence: 0.7,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "plain greeting",
			raw:            "سلام وقت بخیر",
			wantIntent:     core.IntentGreeting,
			wantConfidence: 0.7,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "comparison scores highest",
			raw:            "کدوم بهتره سامسونگ یا اپل",
			wantIntent:     core.IntentComparison,
			wantConfidence: 0.9,
			wantEntities: map[string]interface{}{
				"brand":            "سامسونگ",
				"comparison_items": []string{"سامسونگ", "اپل"},
			},
		},
		{
			name:           "purchase verb with zwnj",
			raw:            "می‌خوام بخرم",
			wantIntent:     core.IntentPurchase,
			wantConfidence: 0.7,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "shipping with joined spelling",
			raw:            "کی می‌رسه دستم",
			wantIntent:     core.IntentShipping,
			wantConfidence: 0.7,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "shipping with spaced spelling",
			raw:            "کی می رسه دستم",
			wantIntent:     core.IntentShipping,
			wantConfidence: 0.7,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "no pattern falls back",
			raw:            "امروز هوا خوبه",
			wantIntent:     core.IntentGeneralInquiry,
			wantConfidence: 0.5,
			wantEntities:   map[string]interface{}{},
		},
		{
			name:           "fallback still extracts slots",
			raw:            "لپتاپ ایسوس",
			wantIntent:     core.IntentGeneralInquiry,
			wantConfidence: 0.6,
			wantEntities:   map[string]interface{}{"brand": "ایسوس"},
		},
		{
			name:           "empty text falls back",
			raw:            "",
			wantIntent:     core.IntentGeneralInquiry,
			wantConfidence: 0.5,
			wantEntities:   map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(normalize.Query(tt.raw))
			assert.Equal(t, tt.wantIntent, res.Intent)
			assert.InDelta(t, tt.wantConfidence, res.Confidence, 1e-9)
			assert.Equal(t, tt.wantEntities, res.Entities)
		})
	}
}

// The counter token inside a purchase phrase splits the verb, so the RAM
// pattern hidden in بخرم and the یا inside نوکیا tie with the bare purchase
// verb. The earlier rule wins the tie, as in scored matching generally.
func TestClassifyTieBreaksByRuleOrder(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0, core.IntentGeneralInquiry)

	res := c.Classify(normalize.Query("می‌خوام 2 تا گوشی نوکیا بخرم"))
	assert.Equal(t, core.IntentFeatureInquiry, res.Intent)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Equal(t, map[string]interface{}{"quantity": 2, "brand": "نوکیا"}, res.Entities)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0, core.IntentGeneralInquiry)
	q := normalize.Query("قیمت گوشی سامسونگ چنده؟")

	first := c.Classify(q)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(q))
	}
}

func TestClassifyThresholdDemotes(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0.75, core.IntentGeneralInquiry)

	res := c.Classify(normalize.Query("کی می‌رسه دستم"))
	assert.Equal(t, core.IntentGeneralInquiry, res.Intent)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)

	res = c.Classify(normalize.Query("قیمت گوشی سامسونگ چنده؟"))
	assert.Equal(t, core.IntentPriceCheck, res.Intent)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestClassifyUnknownFallback(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0, core.IntentUnknown)

	res := c.Classify(normalize.Query("امروز هوا خوبه"))
	assert.Equal(t, core.IntentUnknown, res.Intent)
}

func TestReload(t *testing.T) {
	c := NewClassifier(DefaultRules(), 0, core.IntentGeneralInquiry)
	assert.Equal(t, "builtin", c.RulesVersion())

	res := c.Classify(normalize.Query("هی چطوری"))
	assert.Equal(t, core.IntentGeneralInquiry, res.Intent)

	custom := (&RuleSet{
		Version: "v2",
		Rules:   []Rule{{Intent: core.IntentGreeting, Patterns: []string{"هی"}}},
	}).canonicalized()
	c.Reload(custom)

	assert.Equal(t, "v2", c.RulesVersion())
	res = c.Classify(normalize.Query("هی چطوری"))
	assert.Equal(t, core.IntentGreeting, res.Intent)

	// The replaced tables no longer know the price patterns.
	res = c.Classify(normalize.Query("قیمت چنده"))
	assert.Equal(t, core.IntentGeneralInquiry, res.Intent)
}
