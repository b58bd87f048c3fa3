package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestToolInvocationComplete(t *testing.T) {
	ti := NewToolInvocation("list_files")
	if ti.Tool != "list_files" {
		t.Errorf("Tool = %q, want list_files", ti.Tool)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}

	ti.Complete(true, nil)
	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Error != "" {
		t.Errorf("Error = %q, want empty", ti.Error)
	}
	if ti.Duration < 0 {
		t.Error("Duration should be non-negative")
	}
}

func TestToolInvocationCompleteWithError(t *testing.T) {
	ti := NewToolInvocation("delete_file")
	ti.CompleteWithError(errors.New("item not found"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "item not found" {
		t.Errorf("Error = %q, want %q", ti.Error, "item not found")
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocationChaining(t *testing.T) {
	ti := NewToolInvocation("bulk_move").
		WithCaller("caller-1", SchemeBearer).
		WithOperation(OperationMove).
		CompleteSuccess()

	if ti.Subject != "caller-1" || ti.Scheme != SchemeBearer {
		t.Errorf("caller = %q/%q, want caller-1/oauth-bearer", ti.Subject, ti.Scheme)
	}
	if ti.Operation != OperationMove {
		t.Errorf("Operation = %q, want move", ti.Operation)
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want success", ti.Status())
	}
}

func TestLogAttrsAnonymizesSubject(t *testing.T) {
	ti := NewToolInvocation("get_file_info").
		WithCaller("secret-subject", SchemeAPIKey).
		CompleteSuccess()

	for _, attr := range ti.LogAttrs() {
		if attr.Value.String() == "secret-subject" {
			t.Errorf("LogAttrs leaked the raw subject in %q", attr.Key)
		}
	}
}

func TestLogAuditAttrsIncludesSubject(t *testing.T) {
	ti := NewToolInvocation("get_file_info").
		WithCaller("secret-subject", SchemeAPIKey).
		CompleteSuccess()

	var found bool
	for _, attr := range ti.LogAuditAttrs() {
		if attr.Key == "subject" && attr.Value.String() == "secret-subject" {
			found = true
		}
	}
	if !found {
		t.Error("LogAuditAttrs should include the full subject")
	}
}

func newCapturedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestAuditLoggerRespectsEnabled(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	al.LogToolInvocation(NewToolInvocation("list_files").CompleteSuccess())
	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote output: %s", buf.String())
	}
}

func TestAuditLoggerPIIModes(t *testing.T) {
	tests := []struct {
		name       string
		includePII bool
		wantRaw    bool
	}{
		{name: "anonymized by default", includePII: false, wantRaw: false},
		{name: "pii when configured", includePII: true, wantRaw: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newCapturedLogger()
			al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{
				Enabled:    true,
				IncludePII: tt.includePII,
			})

			ti := NewToolInvocation("search_files").
				WithCaller("raw-subject-value", SchemeBearer).
				CompleteSuccess()
			al.LogToolInvocation(ti)

			got := buf.String()
			if strings.Contains(got, "raw-subject-value") != tt.wantRaw {
				t.Errorf("output PII presence = %v, want %v: %s",
					!tt.wantRaw, tt.wantRaw, got)
			}
		})
	}
}

func TestAuditLoggerFailureLevel(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLogger(logger)

	ti := NewToolInvocation("delete_file").CompleteWithError(errors.New("boom"))
	al.LogToolInvocation(ti)

	got := buf.String()
	if !strings.Contains(got, "tool_failed") {
		t.Errorf("failed invocation should log tool_failed, got: %s", got)
	}
	if !strings.Contains(got, "level=WARN") {
		t.Errorf("failed invocation should log at WARN, got: %s", got)
	}
}

func TestToolInvocationDurationMeasured(t *testing.T) {
	ti := NewToolInvocation("upload_file")
	time.Sleep(time.Millisecond)
	ti.CompleteSuccess()
	if ti.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", ti.Duration)
	}
}
