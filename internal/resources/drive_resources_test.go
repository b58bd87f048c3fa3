package resources

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/server"
)

type staticTokens struct{}

func (staticTokens) Token(_ context.Context) (string, error) {
	return "test-token", nil
}

func TestHandleQuota(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"id":"user-1"}]}`))
	})
	mux.HandleFunc("/users/user-1/drives", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"id":"drive-1"}]}`))
	})
	mux.HandleFunc("/drives/drive-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "drive-1",
			"driveType": "business",
			"quota": {"total": 1000, "used": 250, "remaining": 750, "deleted": 10, "state": "normal"}
		}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := graph.NewClient(staticTokens{}, slog.Default(), graph.WithBaseURL(srv.URL))
	sc := server.NewServerContext(context.Background(), graph.NewDriveService(client, ""))
	defer func() { _ = sc.Shutdown() }()

	request := mcp.ReadResourceRequest{}
	request.Params.URI = "onedrive://quota"

	contents, err := handleQuota(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleQuota() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}

	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T, want *mcp.TextResourceContents", contents[0])
	}
	if text.URI != "onedrive://quota" {
		t.Errorf("URI = %q, want onedrive://quota", text.URI)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(text.Text), &data); err != nil {
		t.Fatalf("resource text is not valid JSON: %v", err)
	}
	if data["driveId"] != "drive-1" {
		t.Errorf("driveId = %v, want drive-1", data["driveId"])
	}
	if data["used"] != float64(250) {
		t.Errorf("used = %v, want 250", data["used"])
	}
	if data["remaining"] != float64(750) {
		t.Errorf("remaining = %v, want 750", data["remaining"])
	}
}

func TestHandleQuota_NoDriveService(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil)
	defer func() { _ = sc.Shutdown() }()

	request := mcp.ReadResourceRequest{}
	request.Params.URI = "onedrive://quota"

	if _, err := handleQuota(context.Background(), request, sc); err == nil {
		t.Error("handleQuota() with nil drive service expected error, got nil")
	}
}
