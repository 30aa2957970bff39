package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonny/serviceops-ai/internal/adapter/inbound/httpapi/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigins       []string
	AuthToken         string
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	logger  *slog.Logger
	srv     *http.Server
}

// NewServer creates a new Server with the given config and API handler.
func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// SetupRoutes builds and returns an http.Handler with all middleware applied.
// Route layout:
//
//	GET    /health                      - Health check
//	GET    /api/metrics                 - Current metrics snapshot
//	GET    /api/recommendation          - One-shot recommendation
//	POST   /api/recommendation          - Receive a delivered recommendation (auth)
//	GET    /api/recommendations         - Recommendation archive
//	GET    /api/recommendations/latest  - Last received recommendation
//	GET    /api/cycles                  - Polling cycle log
//	POST   /api/chat                    - Chat with the agent
//	GET    /api/chat/history            - Conversation history
//	DELETE /api/chat/history            - Clear conversation history (auth)
func (s *Server) SetupRoutes() http.Handler {
	auth := middleware.BearerAuth(s.cfg.AuthToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /api/metrics", s.handler.GetMetrics)
	mux.HandleFunc("GET /api/recommendation", s.handler.GetRecommendation)
	mux.Handle("POST /api/recommendation", auth(http.HandlerFunc(s.handler.PostRecommendation)))
	mux.HandleFunc("GET /api/recommendations", s.handler.ListRecommendations)
	mux.HandleFunc("GET /api/recommendations/latest", s.handler.GetLatestRecommendation)
	mux.HandleFunc("GET /api/cycles", s.handler.ListCycles)
	mux.HandleFunc("POST /api/chat", s.handler.Chat)
	mux.HandleFunc("GET /api/chat/history", s.handler.GetHistory)
	mux.Handle("DELETE /api/chat/history", auth(http.HandlerFunc(s.handler.ResetHistory)))

	// Apply middleware stack (outermost = first to execute):
	//   Recover -> RequestID -> Logging -> SecurityHeaders -> CORS -> RateLimit -> LimitBody -> Metrics
	var h http.Handler = middleware.Metrics(mux)
	h = middleware.LimitBody(middleware.DefaultMaxBodyBytes)(h)
	if s.cfg.RateLimitEnabled {
		h = middleware.NewRateLimiter(s.cfg.RequestsPerSecond, s.cfg.Burst)(h)
	}
	h = middleware.CORS(s.cfg.CORSOrigins)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.NewLoggingMiddleware(s.logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recover(s.logger)(h)

	return h
}

// Start starts the HTTP server and blocks until ctx is cancelled, then performs
// a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "port", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
