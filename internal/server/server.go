// Package server provides the HTTP server setup for commitlens.
package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/commitlens/commitlens/internal/api"
	"github.com/commitlens/commitlens/internal/assistant"
	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/events"
	"github.com/commitlens/commitlens/internal/github"
	"github.com/commitlens/commitlens/internal/ingest"
	"github.com/commitlens/commitlens/internal/llm"
	"github.com/commitlens/commitlens/internal/middleware"
	"github.com/commitlens/commitlens/internal/search"
	"github.com/commitlens/commitlens/internal/store"
)

// Server holds all dependencies for the commitlens HTTP server.
type Server struct {
	Router *chi.Mux
	Config *config.Config
	DB     *store.DB
	Logger *slog.Logger
}

// New creates a new Server with all routes configured.
func New(cfg *config.Config, db *store.DB, natsClient *events.Client, chain *llm.Chain, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(120 * time.Second))
	r.Use(middleware.RequestLogging(logger))

	// Stores
	analysisStore := store.NewAnalysisStore(db)
	embeddingStore := store.NewCommitEmbeddingStore(db)

	// Publisher (may be nil if NATS not available)
	var publisher *events.Publisher
	if natsClient != nil {
		publisher = events.NewPublisher(natsClient, logger)
	}

	// Core services
	gh := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken)
	pipeline := ingest.New(analysisStore, embeddingStore, chain, logger)
	if publisher != nil {
		pipeline.WithNotifier(publisher)
	}
	engine := search.NewEngine(embeddingStore, chain, logger)
	composer := assistant.NewComposer(embeddingStore, chain, logger)

	// Handlers
	healthHandler := api.NewHealthHandler(db, natsClient)
	analysisHandler := api.NewAnalysisHandler(analysisStore, embeddingStore, gh, pipeline, publisher, logger)
	searchHandler := api.NewSearchHandler(engine, composer, publisher, logger)
	dataHandler := api.NewDataHandler(analysisStore, logger)

	// Rate limiters
	analyzeRL := middleware.NewRateLimiter(cfg.AnalyzeRateLimit, cfg.RateWindow)
	searchRL := middleware.NewRateLimiter(cfg.SearchRateLimit, cfg.RateWindow)

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Health (no rate limit)
		r.Get("/health", healthHandler.Health)

		// Analysis lifecycle
		r.Group(func(r chi.Router) {
			r.Use(analyzeRL.Middleware)
			r.Post("/analyze", analysisHandler.Analyze)
			r.Post("/process-commits", analysisHandler.ProcessCommits)
		})

		// Search and generation
		r.Group(func(r chi.Router) {
			r.Use(searchRL.Middleware)
			r.Get("/search-commits", searchHandler.SearchCommits)
			r.Post("/question-answering", searchHandler.QuestionAnswering)
			r.Post("/summarize", searchHandler.Summarize)
		})

		// Stored analysis data
		r.Get("/analysis/{id}", analysisHandler.GetAnalysis)
		r.Get("/analysis-data", analysisHandler.AnalysisData)
		r.Get("/file-change-frequency", dataHandler.FileChangeFrequency)
		r.Get("/commit-activity-timeline", dataHandler.CommitActivityTimeline)
		r.Get("/contributor-statistics", dataHandler.ContributorStatistics)
		r.Get("/codebase-heatmap", dataHandler.CodebaseHeatmap)
		r.Get("/dependency-graph", dataHandler.DependencyGraph)
		r.Get("/issues", dataHandler.Issues)
	})

	return &Server{
		Router: r,
		Config: cfg,
		DB:     db,
		Logger: logger,
	}
}
