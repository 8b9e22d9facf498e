package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	boardservice "pressroom/contexts/community-engagement/board-service"
	votingservice "pressroom/contexts/community-engagement/voting-service"
	publicationservice "pressroom/contexts/editorial-pipeline/publication-service"
	"pressroom/internal/platform/auth"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "pressroom/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	verifier    auth.Verifier
	voting      votingservice.Module
	board       boardservice.Module
	publication publicationservice.Module
}

func New(
	voting votingservice.Module,
	board boardservice.Module,
	publication publicationservice.Module,
	verifier auth.Verifier,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		verifier:    verifier,
		voting:      voting,
		board:       board,
		publication: publication,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.instrument())
}

// Handler exposes the instrumented route table for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.instrument()
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /votes", s.handleCastVote)
	s.mux.HandleFunc("GET /votes/{entity_type}/{entity_id}", s.handleEntityVotes)

	s.mux.HandleFunc("POST /suggestions", s.handleCreateSuggestion)
	s.mux.HandleFunc("GET /suggestions", s.handleListSuggestions)
	s.mux.HandleFunc("GET /suggestions/paginated", s.handleSuggestionsPage)
	s.mux.HandleFunc("GET /suggestions/{suggestion_id}", s.handleGetSuggestion)

	s.mux.HandleFunc("POST /community-posts", s.handleCreatePost)
	s.mux.HandleFunc("GET /community-posts", s.handleListPosts)
	s.mux.HandleFunc("GET /community-posts/paginated", s.handlePostsPage)
	s.mux.HandleFunc("GET /community-posts/{post_id}", s.handleGetPost)

	s.mux.HandleFunc("POST /polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /polls", s.handleListPolls)
	s.mux.HandleFunc("GET /polls/paginated", s.handlePollsPage)
	s.mux.HandleFunc("GET /polls/{poll_id}", s.handleGetPoll)

	s.mux.HandleFunc("POST /reviews", s.handleCreateReview)
	s.mux.HandleFunc("GET /reviews/queue", s.handleReviewQueue)
	s.mux.HandleFunc("GET /reviews/{review_id}", s.handleReviewDetail)
	s.mux.HandleFunc("PUT /reviews/{review_id}", s.handleUpdateReview)
	s.mux.HandleFunc("GET /reviews/{review_id}/history", s.handleReviewHistory)
	s.mux.HandleFunc("POST /publication-actions", s.handlePublicationAction)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readIdentity resolves the caller on read endpoints. Anonymous requests are
// allowed and come back as a zero identity, but a malformed token is still
// an error.
func (s *Server) readIdentity(r *http.Request) (auth.Identity, error) {
	identity, err := s.verifier.FromRequest(r)
	if err == auth.ErrNoIdentity {
		return auth.Identity{}, nil
	}
	return identity, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
