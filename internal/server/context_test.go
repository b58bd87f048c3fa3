package server

import (
	"context"
	"testing"
)

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)

	if sc.IsShutdown() {
		t.Error("IsShutdown() = true before Shutdown()")
	}

	if err := sc.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	if !sc.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown()")
	}

	select {
	case <-sc.Context().Done():
	default:
		t.Error("Context() not cancelled after Shutdown()")
	}

	// Second shutdown is a no-op.
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestServerContext_Instrumentation(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)

	if sc.InstrumentationProvider() != nil {
		t.Error("InstrumentationProvider() != nil before SetInstrumentation()")
	}
	if sc.Metrics() != nil {
		t.Error("Metrics() != nil before SetInstrumentation()")
	}
	if sc.AuditLogger() != nil {
		t.Error("AuditLogger() != nil before SetInstrumentation()")
	}

	provider := createTestProvider(t)
	sc.SetInstrumentation(provider, nil)

	if sc.InstrumentationProvider() != provider {
		t.Error("InstrumentationProvider() did not return the configured provider")
	}
	if sc.Metrics() == nil {
		t.Error("Metrics() = nil after SetInstrumentation() with enabled provider")
	}
}
