// Package generate turns a classified query and its reranked shortlist into
// the final Persian answer. The LLM is only consulted when there is catalog
// context to ground it; greetings and empty shortlists are answered from
// fixed templates so the user always gets a response.
package generate

import (
	"context"
	"strings"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/llm"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/rag"
)

// Fixed answers for the deterministic paths.
const (
	// GreetingText answers greetings without an LLM round trip.
	GreetingText = "سلام! من دستیار فروش این فروشگاه هستم. چطور می‌توانم کمکتان کنم؟"

	// NoResultsText answers retrieval intents whose shortlist came back empty.
	NoResultsText = "متأسفانه محصول مرتبطی با سوال شما پیدا نکردم. لطفاً سوال خود را به شکل دیگری بپرسید یا نام دقیق محصول را بنویسید."

	// FallbackText stands in when the LLM cannot produce an answer.
	FallbackText = "متأسفانه در حال حاضر نمی‌توانم به سوال شما پاسخ دهم. لطفاً دوباره تلاش کنید."
)

// Generator produces the final answer text.
type Generator struct {
	llm core.LLMService
}

// New creates a generator on top of the given chat-completion service.
func New(llmService core.LLMService) *Generator {
	return &Generator{llm: llmService}
}

// Generate answers the query. query is the original user text; the shortlist
// is the reranked retrieval result and becomes both the prompt context and
// the answer's grounding set. The returned flag reports that the LLM failed
// and FallbackText was substituted; such answers must not be cached.
func (g *Generator) Generate(ctx context.Context, intent core.Intent, query string, shortlist []core.SearchResult) (core.Answer, bool) {
	if intent == core.IntentGreeting {
		return core.Answer{Text: GreetingText, Intent: intent}, false
	}
	if len(shortlist) == 0 {
		return core.Answer{Text: NoResultsText, Intent: intent}, false
	}

	prompt := llm.BuildPrompt(intent, query, rag.FormatContext(shortlist))
	reply, err := g.llm.ChatCompletion(ctx, []core.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		logger.LLMWarn("Answer generation failed for intent %s: %v", intent, err)
		return core.Answer{Text: FallbackText, Intent: intent}, true
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		logger.LLMWarn("Answer generation returned empty content for intent %s", intent)
		return core.Answer{Text: FallbackText, Intent: intent}, true
	}

	return core.Answer{Text: reply, GroundingDocIDs: groundingIDs(shortlist), Intent: intent}, false
}

func groundingIDs(shortlist []core.SearchResult) []string {
	ids := make([]string, len(shortlist))
	for i, res := range shortlist {
		ids[i] = res.Product.ID
	}
	return ids
}
