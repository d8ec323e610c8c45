package core

import (
	"sort"
	"time"
)

// Intent is the closed set of question categories the classifier can assign.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentPriceCheck     Intent = "price_check"
	IntentAvailability   Intent = "availability"
	IntentFeatureInquiry Intent = "feature_inquiry"
	IntentComparison     Intent = "comparison"
	IntentShipping       Intent = "shipping"
	IntentPurchase       Intent = "purchase"
	IntentGeneralInquiry Intent = "general_inquiry"
	IntentUnknown        Intent = "unknown"
)

// RequiresRetrieval reports whether answers for this intent must be grounded
// in catalog documents. Greetings are answered from a fixed template and skip
// the vector store entirely.
func (i Intent) RequiresRetrieval() bool {
	return i != IntentGreeting
}

// Valid reports whether the intent is a member of the closed enumeration.
func (i Intent) Valid() bool {
	switch i {
	case IntentGreeting, IntentPriceCheck, IntentAvailability, IntentFeatureInquiry,
		IntentComparison, IntentShipping, IntentPurchase, IntentGeneralInquiry, IntentUnknown:
		return true
	}
	return false
}

// Request is one inbound user utterance. Immutable once created.
type Request struct {
	UserID    string    `json:"user_id"`
	RawText   string    `json:"raw_text"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizedQuery is the canonical form of a request plus its cache key.
// Identical canonical text always yields an identical fingerprint.
type NormalizedQuery struct {
	CanonicalText string `json:"canonical_text"`
	Fingerprint   string `json:"fingerprint"`
}

// Empty reports whether normalization stripped the input down to nothing.
func (q NormalizedQuery) Empty() bool {
	return q.CanonicalText == ""
}

// IntentResult is the classifier output: one primary intent, the extracted
// entities, and a confidence in [0,1].
type IntentResult struct {
	Intent     Intent                 `json:"intent"`
	Entities   map[string]interface{} `json:"entities,omitempty"`
	Confidence float64                `json:"confidence"`
}

// Product is one catalog entry as stored in the vector index. The pipeline
// only reads products, it never mutates them.
type Product struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Brand       string                 `json:"brand,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Price       int64                  `json:"price"`
	Currency    string                 `json:"currency,omitempty"`
	InStock     bool                   `json:"in_stock"`
	Description string                 `json:"description,omitempty"`
	Features    map[string]interface{} `json:"features,omitempty"`
	CreateTime  int64                  `json:"create_time,omitempty"`
}

// SearchResult pairs a product with a similarity or relevance score.
// Retrieval output is ordered by descending score with ties broken by
// ascending product id; reranking rescores but never introduces products
// absent from its input.
type SearchResult struct {
	Product Product `json:"product"`
	Score   float32 `json:"score"`
}

// SortByScoreDesc orders results by descending score with ties broken by
// ascending product id, the ordering contract all retrieval paths share.
func SortByScoreDesc(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Product.ID < results[j].Product.ID
	})
}

// CacheEntry is a previously computed answer keyed by fingerprint. Owned
// exclusively by the cache store; overwritten on expiry and refresh.
type CacheEntry struct {
	Fingerprint     string   `json:"fingerprint"`
	AnswerText      string   `json:"answer_text"`
	Intent          Intent   `json:"intent"`
	GroundingDocIDs []string `json:"grounding_doc_ids,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	TTLSeconds      int      `json:"ttl_seconds"`
}

// Answer is the terminal pipeline output. Immutable once produced.
type Answer struct {
	Text            string   `json:"text"`
	GroundingDocIDs []string `json:"grounding_doc_ids,omitempty"`
	Intent          Intent   `json:"intent"`
}

// ChatResult is what the orchestrator hands back to a transport.
type ChatResult struct {
	Answer     Answer  `json:"answer"`
	Cached     bool    `json:"cached"`
	Confidence float64 `json:"confidence"`
	SessionID  string  `json:"session_id,omitempty"`
}

// SessionRecord is per-session bookkeeping, stored fire-and-forget.
type SessionRecord struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	LastQuery string `json:"last_query"`
	Intent    Intent `json:"intent"`
	UpdatedAt int64  `json:"updated_at"`
}

// ChatMessage is one turn of a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HealthStatus reports overall service health plus per-dependency reachability.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}
