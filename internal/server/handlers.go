package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/rag"
)

// Persian texts surfaced by the product endpoints.
const (
	productAddedText   = "محصول با موفقیت اضافه شد"
	productMissingText = "محصول پیدا نشد"
)

type chatRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response        string   `json:"response"`
	Intent          string   `json:"intent"`
	FromCache       bool     `json:"from_cache"`
	Confidence      float64  `json:"confidence"`
	GroundingDocIDs []string `json:"grounding_doc_ids"`
	SessionID       string   `json:"session_id"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Services  map[string]bool `json:"services"`
}

type productResponse struct {
	Message string       `json:"message"`
	Product core.Product `json:"product"`
}

type reloadResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Intents int    `json:"intents"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "به پرسا خوش آمدید!",
		"version": Version,
		"status":  "running",
	})
}

// handleChat runs one utterance through the pipeline. Input that normalizes
// down to nothing comes back 400, but still with the fixed clarify answer in
// the body so clients can always display the response field.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := s.deps.Pipeline.Chat(r.Context(), core.Request{
		UserID:    req.UserID,
		RawText:   req.Message,
		SessionID: sessionID,
		Timestamp: time.Now(),
	})
	status := http.StatusOK
	if err != nil {
		if !errors.Is(err, core.ErrEmptyQuery) {
			logger.HTTPError("Chat failed for %s: %v", req.UserID, err)
			writeError(w, http.StatusInternalServerError, "failed to process chat request")
			return
		}
		status = http.StatusBadRequest
	}

	writeJSON(w, status, chatResponse{
		Response:        result.Answer.Text,
		Intent:          string(result.Answer.Intent),
		FromCache:       result.Cached,
		Confidence:      result.Confidence,
		GroundingDocIDs: groundingOrEmpty(result.Answer.GroundingDocIDs),
		SessionID:       result.SessionID,
	})
}

// handleHealth reports per-dependency state. A degraded pipeline still
// answers from fallbacks, so the endpoint stays 200 and the status field
// carries the verdict.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Pipeline.Health(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status.Status,
		Timestamp: time.Now(),
		Services:  status.Services,
	})
}

// handleAddProduct embeds and upserts one product, then drops any cached
// copy so reads see the update immediately instead of after the TTL.
func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(w, r) {
		return
	}

	var product core.Product
	if err := decodeJSON(w, r, &product); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product body")
		return
	}
	if product.ID == "" || product.Name == "" {
		writeError(w, http.StatusBadRequest, "product id and name are required")
		return
	}

	vectors, err := s.deps.Embedder.EmbedPassages(r.Context(), []string{rag.EmbedText(product)})
	if err != nil {
		logger.HTTPError("Embedding product %s failed: %v", product.ID, err)
		writeError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}
	if err := s.deps.Store.Upsert(r.Context(), []core.Product{product}, vectors); err != nil {
		logger.HTTPError("Upserting product %s failed: %v", product.ID, err)
		writeError(w, http.StatusBadGateway, "vector store unavailable")
		return
	}
	if err := s.deps.Cache.DeleteProduct(r.Context(), product.ID); err != nil {
		logger.HTTPWarn("Product cache invalidation failed for %s: %v", product.ID, err)
	}

	logger.HTTPInfo("Product %s upserted", product.ID)
	writeJSON(w, http.StatusOK, productResponse{Message: productAddedText, Product: product})
}

// handleGetProduct serves one product cache-aside: cache hit, else the
// vector store with a best-effort cache fill on the way out.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if product, ok := s.deps.Cache.GetProduct(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, product)
		return
	}

	product, found, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		logger.HTTPError("Product lookup failed for %s: %v", id, err)
		writeError(w, http.StatusBadGateway, "vector store unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, productMissingText)
		return
	}

	if err := s.deps.Cache.PutProduct(r.Context(), product); err != nil {
		logger.HTTPDebug("Product cache fill failed for %s: %v", id, err)
	}
	writeJSON(w, http.StatusOK, product)
}

// handleReloadIntents swaps in the rule file without a restart. A missing
// file falls back to the built-in tables; a malformed one is rejected and
// the running rules stay untouched.
func (s *Server) handleReloadIntents(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(w, r) {
		return
	}

	rules, err := intent.LoadRulesOrDefault(s.deps.RulesPath)
	if err != nil {
		logger.HTTPError("Intent rules reload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load intent rules")
		return
	}
	s.deps.Classifier.Reload(rules)

	logger.HTTPInfo("Intent rules reloaded (version %s, %d intents)", rules.Version, len(rules.Rules))
	writeJSON(w, http.StatusOK, reloadResponse{
		Message: "intent rules reloaded",
		Version: rules.Version,
		Intents: len(rules.Rules),
	})
}

// groundingOrEmpty keeps the grounding list a JSON array even when empty.
func groundingOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
