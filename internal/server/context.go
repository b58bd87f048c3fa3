package server

import (
	"context"
	"sync"

	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/instrumentation"
)

// ServerContext holds the shared state of the MCP server: the Graph drive
// service every tool handler calls, and the instrumentation wiring.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	drive          *graph.DriveService
	copyPollPolicy graph.BackoffPolicy

	instrumentationProvider *instrumentation.Provider
	metrics                 *instrumentation.Metrics
	auditLogger             *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context around the given drive service.
func NewServerContext(ctx context.Context, drive *graph.DriveService) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		drive:          drive,
		copyPollPolicy: graph.DefaultPollPolicy,
	}
}

// CopyPollPolicy returns the default polling budget for copy operations.
func (sc *ServerContext) CopyPollPolicy() graph.BackoffPolicy {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.copyPollPolicy
}

// SetCopyPollPolicy overrides the default polling budget for copy operations.
func (sc *ServerContext) SetCopyPollPolicy(policy graph.BackoffPolicy) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.copyPollPolicy = policy
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Drive returns the Graph drive service.
func (sc *ServerContext) Drive() *graph.DriveService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.drive
}

// SetDrive replaces the Graph drive service. Used by tests to inject a fake.
func (sc *ServerContext) SetDrive(drive *graph.DriveService) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.drive = drive
}

// SetInstrumentation wires the instrumentation provider, metrics recorder and
// audit logger into the server context.
func (sc *ServerContext) SetInstrumentation(provider *instrumentation.Provider, auditLogger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.instrumentationProvider = provider
	if provider != nil {
		sc.metrics = provider.Metrics()
	}
	sc.auditLogger = auditLogger
}

// SetMetrics sets the metrics recorder directly. Used by tests that need
// metrics without a full provider.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// InstrumentationProvider returns the instrumentation provider, or nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Metrics returns the metrics recorder, or nil when not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
