package drive_tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/batch"
)

type staticTokens struct{}

func (staticTokens) Token(_ context.Context) (string, error) {
	return "test-token", nil
}

// newDriveFixture builds a ServerContext whose drive service talks to a fake
// Graph server. handler serves everything below the user/drive resolution
// endpoints.
func newDriveFixture(t *testing.T, handler http.HandlerFunc) *server.ServerContext {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"id":"user-1"}]}`))
	})
	mux.HandleFunc("/users/user-1/drives", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"id":"drive-1"}]}`))
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	client := graph.NewClient(staticTokens{}, logger, graph.WithBaseURL(srv.URL))

	sc := server.NewServerContext(context.Background(), graph.NewDriveService(client, ""))
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func TestLimitFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{
			name: "absent",
			args: map[string]interface{}{},
			want: 0,
		},
		{
			name: "positive",
			args: map[string]interface{}{"limit": float64(25)},
			want: 25,
		},
		{
			name: "zero ignored",
			args: map[string]interface{}{"limit": float64(0)},
			want: 0,
		},
		{
			name: "negative ignored",
			args: map[string]interface{}{"limit": float64(-5)},
			want: 0,
		},
		{
			name: "wrong type ignored",
			args: map[string]interface{}{"limit": "25"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limitFromArgs(tt.args); got != tt.want {
				t.Errorf("limitFromArgs() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDriveFor(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil)
	defer func() { _ = sc.Shutdown() }()

	if _, err := driveFor(sc, map[string]interface{}{}); err == nil {
		t.Error("driveFor() with nil drive service expected error, got nil")
	}

	svc := graph.NewDriveService(graph.NewClient(staticTokens{}, slog.Default()), "")
	sc.SetDrive(svc)

	got, err := driveFor(sc, map[string]interface{}{})
	if err != nil {
		t.Fatalf("driveFor() error = %v", err)
	}
	if got != svc {
		t.Error("driveFor() without user_id should return the shared service")
	}

	pinned, err := driveFor(sc, map[string]interface{}{"user_id": "other-user"})
	if err != nil {
		t.Fatalf("driveFor() with user_id error = %v", err)
	}
	if pinned == svc {
		t.Error("driveFor() with user_id should return a service pinned to that user")
	}
}

func TestFormatItems(t *testing.T) {
	items := []graph.DriveItem{
		{ID: "item-1", Name: "a.txt"},
		{ID: "item-2", Name: "b"},
	}

	var decoded struct {
		Count int               `json:"count"`
		Items []graph.DriveItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(formatItems(items)), &decoded); err != nil {
		t.Fatalf("formatItems() produced invalid JSON: %v", err)
	}
	if decoded.Count != 2 {
		t.Errorf("count = %d, want 2", decoded.Count)
	}
	if len(decoded.Items) != 2 || decoded.Items[0].ID != "item-1" {
		t.Errorf("items = %+v, want the input items", decoded.Items)
	}
}

func TestCopyResponse_MonitorURLExposure(t *testing.T) {
	op := &graph.CopyOperation{
		MonitorURL:      "https://monitor.example/op/1",
		Status:          graph.CopyStatusInProgress,
		PercentComplete: 40,
	}

	with := copyResponse(op, true)
	if with.MonitorURL != op.MonitorURL {
		t.Errorf("MonitorURL = %q, want %q", with.MonitorURL, op.MonitorURL)
	}

	without := copyResponse(op, false)
	if without.MonitorURL != "" {
		t.Errorf("MonitorURL = %q, want empty when not included", without.MonitorURL)
	}
	if without.Status != graph.CopyStatusInProgress || without.PercentComplete != 40 {
		t.Errorf("status fields not carried over: %+v", without)
	}
}

func TestStartCopyFromArgs_Validation(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil)
	defer func() { _ = sc.Shutdown() }()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{
			name: "missing item_id",
			args: map[string]interface{}{
				"target_drive_id":  "drive-2",
				"target_parent_id": "parent-1",
			},
		},
		{
			name: "missing target_drive_id",
			args: map[string]interface{}{
				"item_id":          "item-1",
				"target_parent_id": "parent-1",
			},
		},
		{
			name: "missing target_parent_id",
			args: map[string]interface{}{
				"item_id":         "item-1",
				"target_drive_id": "drive-2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, result := startCopyFromArgs(context.Background(), sc, tt.args)
			if op != nil {
				t.Error("expected nil operation for invalid arguments")
			}
			if result == nil || !result.IsError {
				t.Error("expected an error tool result for invalid arguments")
			}
		})
	}
}

// Every parameter a tool declares as required must be enforced by its
// handler: omitting it yields an error result before any Graph call.
func TestDeclaredRequiredParamsAreEnforced(t *testing.T) {
	var remoteCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteCalls.Add(1)
		http.Error(w, "no remote call expected", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	client := graph.NewClient(staticTokens{}, logger, graph.WithBaseURL(srv.URL))
	sc := server.NewServerContext(context.Background(), graph.NewDriveService(client, ""))
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv := mcpserver.NewMCPServer("onedrive", "test",
		mcpserver.WithToolCapabilities(true),
	)
	if err := RegisterDriveTools(mcpSrv, sc, false); err != nil {
		t.Fatalf("RegisterDriveTools() error = %v", err)
	}

	serverTools := mcpSrv.ListTools()
	if len(serverTools) == 0 {
		t.Fatal("no tools registered")
	}

	for _, serverTool := range serverTools {
		tool := serverTool.Tool
		handler := serverTool.Handler

		for _, omitted := range tool.InputSchema.Required {
			t.Run(tool.Name+"/"+omitted, func(t *testing.T) {
				args := map[string]interface{}{}
				for _, name := range tool.InputSchema.Required {
					if name != omitted {
						args[name] = "x"
					}
				}

				request := mcp.CallToolRequest{}
				request.Params.Name = tool.Name
				request.Params.Arguments = args

				result, err := handler(context.Background(), request)
				if err != nil {
					t.Fatalf("handler returned a Go error for a missing parameter: %v", err)
				}
				if result == nil || !result.IsError {
					t.Errorf("omitting %q did not produce an error result", omitted)
				}
			})
		}
	}

	// Listing tools and rejecting bad arguments both happen locally.
	if got := remoteCalls.Load(); got != 0 {
		t.Errorf("validation issued %d Graph calls, want 0", got)
	}
}

// Bulk deletes must report a per-item partition: items that fail leave the
// rest of the batch untouched.
func TestBulkDelete_PartialFailure(t *testing.T) {
	sc := newDriveFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/items/item-b") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"itemNotFound","message":"The resource could not be found."}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	svc := sc.Drive()
	ids := []string{"item-a", "item-b", "item-c"}

	results := batch.ProcessBatch(context.Background(), ids, func(ctx context.Context, id string) (string, error) {
		if err := svc.DeleteItem(ctx, id); err != nil {
			return "", err
		}
		return "deleted", nil
	})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	if results[0].Status != batch.StatusSuccess {
		t.Errorf("item-a status = %s, want success", results[0].Status)
	}
	if results[1].Status != batch.StatusError {
		t.Errorf("item-b status = %s, want error", results[1].Status)
	}
	if !strings.Contains(results[1].Error, "itemNotFound") {
		t.Errorf("item-b error = %q, want the remote error code included", results[1].Error)
	}
	if results[2].Status != batch.StatusSuccess {
		t.Errorf("item-c status = %s, want success", results[2].Status)
	}

	var br batch.BatchResult
	if err := json.Unmarshal([]byte(batch.FormatResults(results)), &br); err != nil {
		t.Fatalf("FormatResults() produced invalid JSON: %v", err)
	}
	if br.Successful != 2 || br.Failed != 1 {
		t.Errorf("partition = %d/%d, want 2 successful and 1 failed", br.Successful, br.Failed)
	}
}
