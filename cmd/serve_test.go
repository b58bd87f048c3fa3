package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ariavn-byte/onedrive/internal/graph"
)

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("TENANT_ID", "env-tenant")
	t.Setenv("CLIENT_ID", "env-client")
	t.Setenv("CLIENT_SECRET", "env-secret")
	t.Setenv("MCP_API_KEY", "env-key")
	t.Setenv("MCP_ALLOW_AUDIENCE_MISMATCH", "true")
	t.Setenv("METRICS_ADDR", ":9999")

	cmd := newServeCmd()
	var cfg ServeConfig
	loadServeEnvVars(cmd, &cfg)

	if cfg.TenantID != "env-tenant" {
		t.Errorf("TenantID = %q, want env-tenant", cfg.TenantID)
	}
	if cfg.ClientID != "env-client" {
		t.Errorf("ClientID = %q, want env-client", cfg.ClientID)
	}
	if cfg.ClientSecret != "env-secret" {
		t.Errorf("ClientSecret = %q, want env-secret", cfg.ClientSecret)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.APIKey)
	}
	if !cfg.AllowAudienceMismatch {
		t.Error("AllowAudienceMismatch = false, want true from env")
	}
	if cfg.MetricsAddr != ":9999" {
		t.Errorf("MetricsAddr = %q, want :9999", cfg.MetricsAddr)
	}

	// Audience defaults to the client ID when not configured.
	if cfg.Audience != "env-client" {
		t.Errorf("Audience = %q, want the client ID", cfg.Audience)
	}
}

func TestLoadServeEnvVars_FlagsWin(t *testing.T) {
	t.Setenv("TENANT_ID", "env-tenant")
	t.Setenv("MCP_AUDIENCE", "env-audience")

	cmd := newServeCmd()
	cfg := ServeConfig{
		TenantID: "flag-tenant",
		Audience: "flag-audience",
	}
	loadServeEnvVars(cmd, &cfg)

	if cfg.TenantID != "flag-tenant" {
		t.Errorf("TenantID = %q, flag value must win over env", cfg.TenantID)
	}
	if cfg.Audience != "flag-audience" {
		t.Errorf("Audience = %q, flag value must win over env", cfg.Audience)
	}
}

func TestServeFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	if got, _ := cmd.Flags().GetString("transport"); got != "stdio" {
		t.Errorf("transport default = %q, want stdio", got)
	}
	if got, _ := cmd.Flags().GetBool("yolo"); got {
		t.Error("yolo default = true, want false (read-only by default)")
	}
	if got, _ := cmd.Flags().GetInt("max-retries"); got != graph.DefaultRetryPolicy.MaxAttempts {
		t.Errorf("max-retries default = %d, want %d", got, graph.DefaultRetryPolicy.MaxAttempts)
	}
	if got, _ := cmd.Flags().GetDuration("copy-poll-interval"); got != graph.DefaultPollPolicy.BaseDelay {
		t.Errorf("copy-poll-interval default = %v, want %v", got, graph.DefaultPollPolicy.BaseDelay)
	}
	if got, _ := cmd.Flags().GetDuration("retry-base-delay"); got != graph.DefaultRetryPolicy.BaseDelay {
		t.Errorf("retry-base-delay default = %v, want %v", got, graph.DefaultRetryPolicy.BaseDelay)
	}
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"list_files", "File Tools"},
		{"create_folder", "Folder Tools"},
		{"bulk_delete", "Bulk Tools"},
		{"copy_file_and_wait", "Copy Tools"},
		{"unknown_tool", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			if got := getCategoryFromToolName(tt.tool); got != tt.want {
				t.Errorf("getCategoryFromToolName(%q) = %q, want %q", tt.tool, got, tt.want)
			}
		})
	}
}

func TestGenerateDocs_CoversToolSurface(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")
	if err := runGenerateDocs(out); err != nil {
		t.Fatalf("doc generation failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read generated docs: %v", err)
	}
	docs := string(data)

	for _, tool := range []string{"list_files", "upload_file", "bulk_delete", "copy_file_and_wait", "poll_copy_status"} {
		if !strings.Contains(docs, "### "+tool) {
			t.Errorf("generated docs missing tool %s", tool)
		}
	}
}
