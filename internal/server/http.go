package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/auth"
	"github.com/ariavn-byte/onedrive/internal/instrumentation"
)

// HTTPServerConfig holds configuration for the streamable HTTP transport.
type HTTPServerConfig struct {
	// Addr is the address to bind to (e.g., ":8080").
	Addr string

	// DisableStreaming forces plain request/response mode on the MCP endpoint.
	DisableStreaming bool

	// AuthMiddleware guards the MCP endpoint. Required: the HTTP transport
	// never runs open.
	AuthMiddleware *auth.Middleware

	// HealthChecker registers the unauthenticated probe endpoints.
	HealthChecker *HealthChecker

	// Metrics records HTTP request metrics when set.
	Metrics *instrumentation.Metrics
}

// HTTPServer serves the MCP protocol over streamable HTTP. The /mcp endpoint
// sits behind the auth middleware; health probes are registered on the same
// mux but outside it.
type HTTPServer struct {
	httpServer *http.Server
	mcpServer  *mcpserver.MCPServer
	config     HTTPServerConfig
	logger     *slog.Logger
}

// NewHTTPServer builds the HTTP transport around an MCP server.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		mcpServer: mcpServer,
		config:    config,
		logger:    logger,
	}
}

// Start starts the HTTP server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *HTTPServer) Start() error {
	mux := http.NewServeMux()

	// Health probes stay outside the auth middleware.
	if s.config.HealthChecker != nil {
		s.config.HealthChecker.RegisterHealthEndpoints(mux)
	}

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
	}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	var mcpHandler http.Handler = streamable
	if s.config.Metrics != nil {
		mcpHandler = s.instrumentHandler(mcpHandler)
	}
	mux.Handle("/mcp", s.config.AuthMiddleware.Wrap(mcpHandler))

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting MCP HTTP server", slog.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) instrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.config.Metrics.IncrementActiveSessions(r.Context())
		defer s.config.Metrics.DecrementActiveSessions(r.Context())
		next.ServeHTTP(rec, r)
		s.config.Metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down MCP HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
