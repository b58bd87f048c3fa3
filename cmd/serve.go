package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/auth"
	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/instrumentation"
	"github.com/ariavn-byte/onedrive/internal/resources"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/drive_tools"
)

// ServeConfig holds the resolved serve configuration after flags and
// environment variables are merged.
type ServeConfig struct {
	Transport        string
	HTTPAddr         string
	Debug            bool
	Yolo             bool
	DisableStreaming bool

	// Graph credentials (client-credentials flow)
	TenantID     string
	ClientID     string
	ClientSecret string

	// UserID optionally pins the OneDrive owner; empty resolves the first
	// user in the tenant.
	UserID string

	// Inbound auth for the HTTP transport
	APIKey                string
	Audience              string
	AllowAudienceMismatch bool

	// Retry and copy polling knobs
	MaxRetries       int
	RetryBaseDelay   time.Duration
	CopyPollMax      int
	CopyPollInterval time.Duration

	// Metrics server
	MetricsEnabled bool
	MetricsAddr    string
}

func newServeCmd() *cobra.Command {
	var cfg ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing OneDrive tools
for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (upload, delete, move, ...).

Graph Credentials (required):
  --tenant-id, --client-id and --client-secret flags
  OR TENANT_ID, CLIENT_ID and CLIENT_SECRET env vars.
  The app registration needs application permissions for Microsoft Graph
  (Files.ReadWrite.All, and User.Read.All for user resolution).

HTTP Transport Authentication:
  The streamable HTTP transport never runs open. Configure at least one of:
    --api-key (or MCP_API_KEY env var) for shared-key clients
    Azure AD bearer tokens, validated against the tenant's signing keys.
  The expected token audience defaults to the client ID; override with
  --audience (or MCP_AUDIENCE).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnvVars(cmd, &cfg)
			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.Transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&cfg.Yolo, "yolo", false, "Enable write operations (upload, delete, move, etc.). Default is read-only mode.")
	cmd.Flags().BoolVar(&cfg.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	cmd.Flags().StringVar(&cfg.TenantID, "tenant-id", "", "Azure AD tenant ID. Can also use TENANT_ID env var.")
	cmd.Flags().StringVar(&cfg.ClientID, "client-id", "", "App registration client ID. Can also use CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.ClientSecret, "client-secret", "", "App registration client secret. Can also use CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.UserID, "user-id", "", "User whose OneDrive to target (default: first user in the tenant). Can also use ONEDRIVE_USER_ID env var.")

	cmd.Flags().StringVar(&cfg.APIKey, "api-key", "", "Shared API key accepted on the X-API-Key header (HTTP transport). Can also use MCP_API_KEY env var.")
	cmd.Flags().StringVar(&cfg.Audience, "audience", "", "Expected audience of inbound Azure AD tokens (default: the client ID). Can also use MCP_AUDIENCE env var.")
	cmd.Flags().BoolVar(&cfg.AllowAudienceMismatch, "allow-audience-mismatch", false, "WARNING: Accept tokens whose audience does not match, logging a warning instead of rejecting. Transitional rollouts only. Can also use MCP_ALLOW_AUDIENCE_MISMATCH env var.")

	cmd.Flags().IntVar(&cfg.MaxRetries, "max-retries", graph.DefaultRetryPolicy.MaxAttempts, "Maximum attempts for throttled or unavailable Graph calls")
	cmd.Flags().DurationVar(&cfg.RetryBaseDelay, "retry-base-delay", graph.DefaultRetryPolicy.BaseDelay, "Initial delay between Graph retries; grows with backoff")
	cmd.Flags().IntVar(&cfg.CopyPollMax, "copy-poll-max", graph.DefaultPollPolicy.MaxAttempts, "Maximum status polls for copy_file_and_wait before reporting a timeout")
	cmd.Flags().DurationVar(&cfg.CopyPollInterval, "copy-poll-interval", graph.DefaultPollPolicy.BaseDelay, "Initial delay between copy status polls; grows with backoff")

	cmd.Flags().BoolVar(&cfg.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills unset flags from environment variables. Environment
// values never override a flag the user set explicitly.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) {
	if cfg.TenantID == "" {
		cfg.TenantID = os.Getenv("TENANT_ID")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("CLIENT_SECRET")
	}
	if cfg.UserID == "" {
		cfg.UserID = os.Getenv("ONEDRIVE_USER_ID")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MCP_API_KEY")
	}
	if cfg.Audience == "" {
		cfg.Audience = os.Getenv("MCP_AUDIENCE")
	}
	if !cmd.Flags().Changed("allow-audience-mismatch") {
		if v, err := strconv.ParseBool(os.Getenv("MCP_ALLOW_AUDIENCE_MISMATCH")); err == nil {
			cfg.AllowAudienceMismatch = v
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if v, err := strconv.ParseBool(os.Getenv("METRICS_ENABLED")); err == nil {
			cfg.MetricsEnabled = v
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.MetricsAddr = addr
		}
	}
	// Tokens issued for the app itself carry the client ID as audience.
	if cfg.Audience == "" {
		cfg.Audience = cfg.ClientID
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe(cfg ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if cfg.Transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Build the Graph stack: token source, retrying client, drive service
	tokens, err := graph.NewTokenSource(graph.Credentials{
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to configure Graph credentials: %w", err)
	}

	retry := graph.DefaultRetryPolicy
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		retry.BaseDelay = cfg.RetryBaseDelay
	}

	client := graph.NewClient(tokens, logger, graph.WithRetryPolicy(retry))
	driveService := graph.NewDriveService(client, cfg.UserID)

	// Create server context
	serverContext := server.NewServerContext(shutdownCtx, driveService)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			if cfg.Transport != "stdio" {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	pollPolicy := graph.DefaultPollPolicy
	if cfg.CopyPollMax > 0 {
		pollPolicy.MaxAttempts = cfg.CopyPollMax
	}
	if cfg.CopyPollInterval > 0 {
		pollPolicy.BaseDelay = cfg.CopyPollInterval
	}
	serverContext.SetCopyPollPolicy(pollPolicy)

	// Wire metrics and audit logging into tool instrumentation
	if provider.Enabled() {
		serverContext.SetInstrumentation(provider,
			instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))

		if metrics := provider.Metrics(); metrics != nil {
			tokens.SetRefreshHook(func(success bool) {
				result := "success"
				if !success {
					result = "failure"
				}
				metrics.RecordTokenRefresh(context.Background(), result)
			})
		}
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("onedrive", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	// readOnly is the inverse of yolo
	readOnly := !cfg.Yolo

	if cfg.Transport != "stdio" {
		if readOnly {
			log.Println("Starting server in READ-ONLY mode (use --yolo to enable write operations)")
		} else {
			log.Println("Starting server with WRITE operations enabled (--yolo flag is set)")
		}
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch cfg.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	if err := drive_tools.RegisterDriveTools(mcpSrv, ctx, readOnly); err != nil {
		return fmt.Errorf("failed to register Drive tools: %w", err)
	}

	if err := resources.RegisterDriveResources(mcpSrv, ctx); err != nil {
		return fmt.Errorf("failed to register Drive resources: %w", err)
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, cfg ServeConfig, provider *instrumentation.Provider, logger *slog.Logger) error {
	// The HTTP transport never runs open: require at least one inbound scheme.
	if cfg.APIKey == "" && cfg.TenantID == "" {
		return fmt.Errorf("streamable-http transport requires --api-key or Azure AD bearer configuration")
	}

	apiKeyAuth := auth.NewAPIKeyAuthenticator(cfg.APIKey)
	var bearerAuth *auth.BearerAuthenticator
	if cfg.TenantID != "" {
		bearerAuth = auth.NewBearerAuthenticator(auth.BearerConfig{
			TenantID:              cfg.TenantID,
			Audience:              cfg.Audience,
			AllowAudienceMismatch: cfg.AllowAudienceMismatch,
		}, logger)
	}
	middleware := auth.NewMiddleware(apiKeyAuth, bearerAuth, logger)
	if provider.Enabled() {
		middleware.SetMetrics(provider.Metrics())
	}

	healthChecker := server.NewHealthChecker(serverContext)

	httpConfig := server.HTTPServerConfig{
		Addr:             cfg.HTTPAddr,
		DisableStreaming: cfg.DisableStreaming,
		AuthMiddleware:   middleware,
		HealthChecker:    healthChecker,
	}
	if provider.Enabled() {
		httpConfig.Metrics = provider.Metrics()
	}
	httpServer := server.NewHTTPServer(mcpSrv, httpConfig, logger)

	// Start metrics server on its dedicated port
	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server stopped with error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}()
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", cfg.HTTPAddr)
	fmt.Printf("  MCP endpoint: /mcp (authenticated)\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if metricsServer != nil {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsServer.Addr())
	}
	if apiKeyAuth.Enabled() {
		fmt.Println("  API key authentication: enabled (X-API-Key header)")
	}
	if bearerAuth != nil {
		fmt.Printf("  Azure AD bearer authentication: enabled (tenant %s)\n", cfg.TenantID)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
