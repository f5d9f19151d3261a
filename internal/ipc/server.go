package ipc

import (
	"context"
	"net/http"
)

// Server wraps an HTTP server with engine-specific routing.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	mux := http.NewServeMux()

	// Health endpoint.
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Artwork endpoints.
	mux.HandleFunc("POST /api/v1/artworks", h.CreateArtwork)
	mux.HandleFunc("GET /api/v1/artworks/{artworkID}", h.GetArtwork)
	mux.HandleFunc("GET /api/v1/artworks/{artworkID}/content", h.GetContent)
	mux.HandleFunc("GET /api/v1/artworks/{artworkID}/conditions", h.ListConditions)

	// Interaction endpoints.
	mux.HandleFunc("POST /api/v1/artworks/{artworkID}/views", h.RecordView)
	mux.HandleFunc("POST /api/v1/artworks/{artworkID}/comments", h.RecordComment)

	// Event stream endpoints.
	mux.HandleFunc("GET /api/v1/artworks/{artworkID}/events/stream", h.StreamArtworkEvents)
	mux.HandleFunc("GET /api/v1/users/{userID}/events/stream", h.StreamUserEvents)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: corsMiddleware(mux),
	}

	return &Server{
		httpServer: srv,
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for local frontend access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
