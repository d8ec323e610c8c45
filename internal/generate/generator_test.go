package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/porsa/internal/core"
)

type fakeLLM struct {
	reply    string
	err      error
	calls    int
	messages []core.ChatMessage
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, messages []core.ChatMessage) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

func shortlist() []core.SearchResult {
	return []core.SearchResult{
		{
			Product: core.Product{
				ID:       "prod-1",
				Name:     "گوشی سامسونگ گلکسی S21",
				Brand:    "سامسونگ",
				Price:    15000000,
				Currency: "تومان",
				InStock:  true,
			},
			Score: 0.9,
		},
		{
			Product: core.Product{
				ID:      "prod-2",
				Name:    "گوشی شیائومی ردمی نوت 12",
				Price:   9500000,
				InStock: false,
			},
			Score: 0.7,
		},
	}
}

func TestGenerateGreetingSkipsLLM(t *testing.T) {
	llm := &fakeLLM{reply: "نباید صدا زده شود"}
	g := New(llm)

	answer, fallback := g.Generate(context.Background(), core.IntentGreeting, "سلام", nil)

	assert.Equal(t, GreetingText, answer.Text)
	assert.Equal(t, core.IntentGreeting, answer.Intent)
	assert.Empty(t, answer.GroundingDocIDs)
	assert.False(t, fallback)
	assert.Zero(t, llm.calls)
}

func TestGenerateEmptyShortlist(t *testing.T) {
	llm := &fakeLLM{reply: "نباید صدا زده شود"}
	g := New(llm)

	answer, fallback := g.Generate(context.Background(), core.IntentPriceCheck, "قیمت گوشی سامسونگ", nil)

	assert.Equal(t, NoResultsText, answer.Text)
	assert.Equal(t, core.IntentPriceCheck, answer.Intent)
	assert.Empty(t, answer.GroundingDocIDs)
	assert.False(t, fallback)
	assert.Zero(t, llm.calls)
}

func TestGenerateGroundedAnswer(t *testing.T) {
	llm := &fakeLLM{reply: "  قیمت گوشی سامسونگ گلکسی S21 برابر 15,000,000 تومان است.\n"}
	g := New(llm)

	answer, fallback := g.Generate(context.Background(), core.IntentPriceCheck, "قیمت گوشی سامسونگ چنده؟", shortlist())

	require.False(t, fallback)
	assert.Equal(t, "قیمت گوشی سامسونگ گلکسی S21 برابر 15,000,000 تومان است.", answer.Text)
	assert.Equal(t, []string{"prod-1", "prod-2"}, answer.GroundingDocIDs)
	assert.Equal(t, core.IntentPriceCheck, answer.Intent)

	require.Equal(t, 1, llm.calls)
	require.Len(t, llm.messages, 1)
	assert.Equal(t, "user", llm.messages[0].Role)

	prompt := llm.messages[0].Content
	assert.Contains(t, prompt, "قیمت گوشی سامسونگ چنده؟")
	assert.Contains(t, prompt, "گوشی سامسونگ گلکسی S21")
	assert.Contains(t, prompt, "15,000,000 تومان")
	assert.Contains(t, prompt, "در مورد قیمت محصول")
}

func TestGenerateLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("upstream down")}
	g := New(llm)

	answer, fallback := g.Generate(context.Background(), core.IntentAvailability, "موجودی هدفون سونی", shortlist())

	assert.True(t, fallback)
	assert.Equal(t, FallbackText, answer.Text)
	assert.Equal(t, core.IntentAvailability, answer.Intent)
	assert.Empty(t, answer.GroundingDocIDs)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerateEmptyReply(t *testing.T) {
	llm := &fakeLLM{reply: "   \n"}
	g := New(llm)

	answer, fallback := g.Generate(context.Background(), core.IntentGeneralInquiry, "یه سوال دارم", shortlist())

	assert.True(t, fallback)
	assert.Equal(t, FallbackText, answer.Text)
}
