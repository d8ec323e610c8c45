// Package server exposes the chat pipeline over HTTP: the chat endpoint,
// product endpoints with a cache-aside lookup, an admin rule reload, health
// and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hunterwarburton/porsa/internal/auth"
	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// adminTokenHeader carries the shared secret that gates admin endpoints.
const adminTokenHeader = "X-Admin-Token"

// maxBodyBytes caps request bodies; chat messages and single products are
// far smaller than this.
const maxBodyBytes = 1 << 20

// ChatService is the slice of the orchestrator the HTTP transport drives.
type ChatService interface {
	Chat(ctx context.Context, req core.Request) (core.ChatResult, error)
	Health(ctx context.Context) core.HealthStatus
}

// ProductCache is the cache slice behind the product endpoints.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (core.Product, bool)
	PutProduct(ctx context.Context, product core.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Pipeline   ChatService
	Cache      ProductCache
	Embedder   core.EmbedService
	Store      core.ProductStore
	Classifier *intent.Classifier
	Policy     *auth.PolicyService
	// RulesPath is re-read by the intent reload endpoint.
	RulesPath string
	// Gatherer backs the metrics endpoint; nil means the default registry.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP transport over the chat pipeline.
type Server struct {
	deps Deps
}

// New builds the transport. It does not start listening; pair it with
// HTTPServer and drive the lifecycle from the entrypoint.
func New(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{deps: deps}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging)

	router.HandleFunc("/", s.handleRoot).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics",
		promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/products", s.handleAddProduct).Methods("POST")
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods("GET")
	api.HandleFunc("/admin/intents/reload", s.handleReloadIntents).Methods("POST")

	return router
}

// HTTPServer wraps the router in a server with timeouts. The write timeout
// must stay above the pipeline deadline or slow answers get cut off
// mid-response.
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}

// authorizeAdmin gates an admin endpoint on the shared-token header. It
// writes the rejection itself; callers just return on false.
func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.deps.Policy.CheckAdminToken(r.Header.Get(adminTokenHeader)) {
		return true
	}
	logger.HTTPWarn("Rejected admin request to %s from %s", r.URL.Path, r.RemoteAddr)
	writeError(w, http.StatusUnauthorized, "admin token required")
	return false
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging logs one line per request. Health and metrics polls go to
// debug so they do not drown the log.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start).Round(time.Millisecond)
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			logger.HTTPDebug("%s %s -> %d in %s", r.Method, r.URL.Path, rec.status, elapsed)
			return
		}
		logger.HTTPInfo("%s %s -> %d in %s", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON sends v with an explicit utf-8 charset; responses carry Persian
// text and some clients will not default to utf-8 on bare application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.HTTPError("Response encoding failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
