package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/haplog/pkg/config"
)

func TestNewDiagnoseCommand(t *testing.T) {
	cmd := NewDiagnoseCommand()

	if cmd.Use != "diagnose <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	if cmd.Flags().Lookup("verbose") == nil {
		t.Error("Missing verbose flag")
	}
}

func TestCheckConfigExists(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	good := writeTestConfig(t, "log_sources: [/var/log/haproxy.log]\n")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"not found", "/nonexistent/config.yaml", "error"},
		{"empty", empty, "error"},
		{"directory", dir, "error"},
		{"found", good, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkConfigExists(tt.path)
			if result.Status != tt.want {
				t.Errorf("Status = %s, want %s (%s)", result.Status, tt.want, result.Message)
			}
		})
	}
}

func TestCheckConfigParseable(t *testing.T) {
	bad := writeTestConfig(t, "log_sources: [unclosed\n")
	if _, result := checkConfigParseable(context.Background(), bad); result.Status != "error" {
		t.Errorf("Status = %s, want error for invalid YAML", result.Status)
	}

	// Semantic errors are left to checkSettings.
	unknown := writeTestConfig(t, "log_sources: [/var/log/haproxy.log]\ncommands: [nope]\n")
	cfg, result := checkConfigParseable(context.Background(), unknown)
	if result.Status != "ok" || cfg == nil {
		t.Fatalf("Status = %s, want ok: %s", result.Status, result.Message)
	}
}

func TestCheckSettings(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		check  string
		status string
	}{
		{"no window", config.Config{}, "Time Window", "ok"},
		{"window", config.Config{Start: "12/Dec/2019", Delta: "3d"}, "Time Window", "ok"},
		{"bad start", config.Config{Start: "2019-12-12"}, "Time Window", "error"},
		{"delta only", config.Config{Delta: "3d"}, "Time Window", "warning"},
		{"default commands", config.Config{}, "Commands", "ok"},
		{"unknown command", config.Config{Commands: []string{"counter", "nope"}}, "Commands", "error"},
		{"bad output", config.Config{Output: "xml"}, "Output", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := findCheck(checkSettings(&tt.cfg), tt.check)
			if !ok {
				t.Fatalf("no %q check in results", tt.check)
			}
			if result.Status != tt.status {
				t.Errorf("Status = %s, want %s (%s)", result.Status, tt.status, result.Message)
			}
		})
	}
}

func TestCheckLogSources(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "haproxy.log")
	if err := os.WriteFile(logPath, []byte(testLine("09/Dec/2013:12:59:46.633")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	emptyPath := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(emptyPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		source    string
		status    string
		wantFiles int
	}{
		{"direct file", logPath, "ok", 1},
		{"glob", filepath.Join(dir, "haproxy*"), "ok", 1},
		{"directory", dir, "ok", 1},
		{"empty file", emptyPath, "warning", 0},
		{"missing", "/nonexistent/path/*.log", "error", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, results := checkLogSources(&config.Config{LogSources: []string{tt.source}})
			if results[0].Status != tt.status {
				t.Errorf("Status = %s, want %s (%s)", results[0].Status, tt.status, results[0].Message)
			}
			if len(files) != tt.wantFiles {
				t.Errorf("files = %v, want %d", files, tt.wantFiles)
			}
			if tt.wantFiles == 0 {
				if _, ok := findCheck(results, "Log Files Summary"); !ok {
					t.Error("expected a Log Files Summary error when nothing is readable")
				}
			}
		})
	}
}

func TestCheckLogSources_NoneDefined(t *testing.T) {
	_, results := checkLogSources(&config.Config{})
	if len(results) != 1 || results[0].Status != "error" {
		t.Errorf("results = %+v, want a single error", results)
	}
}

func TestCheckLogFormat(t *testing.T) {
	haproxyLog := writeTestLog(t, "haproxy.log",
		testLine("09/Dec/2013:12:59:46.633"),
		testLine("09/Dec/2013:13:00:46.633"),
	)
	apacheLog := writeTestLog(t, "access.log",
		`127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET / HTTP/1.0" 200 2326`,
	)
	opts := &DiagnoseOptions{}
	ctx := context.Background()

	t.Run("haproxy", func(t *testing.T) {
		results := checkLogFormat(ctx, &config.Config{}, []string{haproxyLog}, opts)
		if len(results) != 1 || results[0].Status != "ok" {
			t.Errorf("results = %+v, want one ok result", results)
		}
	})

	t.Run("not haproxy", func(t *testing.T) {
		results := checkLogFormat(ctx, &config.Config{}, []string{apacheLog}, opts)
		if results[0].Status != "error" {
			t.Errorf("Status = %s, want error", results[0].Status)
		}
	})

	t.Run("window overlaps", func(t *testing.T) {
		cfg := &config.Config{Start: "09/Dec/2013", Delta: "1d"}
		overlap, ok := findCheck(checkLogFormat(ctx, cfg, []string{haproxyLog}, opts), "Window Overlap")
		if !ok || overlap.Status != "ok" {
			t.Errorf("Window Overlap = %+v, want ok", overlap)
		}
	})

	t.Run("window before file", func(t *testing.T) {
		cfg := &config.Config{Start: "01/Dec/2013", Delta: "1d"}
		overlap, ok := findCheck(checkLogFormat(ctx, cfg, []string{haproxyLog}, opts), "Window Overlap")
		if !ok || overlap.Status != "warning" {
			t.Errorf("Window Overlap = %+v, want warning", overlap)
		}
	})

	if results := checkLogFormat(ctx, &config.Config{}, nil, opts); results != nil {
		t.Errorf("checkLogFormat(no files) = %+v, want nil", results)
	}
}

func TestCheckWebhooks(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		if results := checkWebhooks(ctx, &config.Config{}, &DiagnoseOptions{}); len(results) != 0 {
			t.Errorf("Expected 0 results without verbose, got %d", len(results))
		}
		if results := checkWebhooks(ctx, &config.Config{}, &DiagnoseOptions{Verbose: true}); len(results) != 1 {
			t.Errorf("Expected 1 result with verbose, got %d", len(results))
		}
	})

	tests := []struct {
		name    string
		webhook config.WebhookConfig
		status  string
	}{
		{"valid", config.WebhookConfig{Name: "ops", URL: "https://example.com/hook"}, "ok"},
		{"missing url", config.WebhookConfig{Name: "no-url"}, "error"},
		{"bad scheme", config.WebhookConfig{URL: "ftp://example.com/hook"}, "error"},
		{"bad trigger", config.WebhookConfig{URL: "https://example.com/hook", Trigger: "on_issues"}, "error"},
		{"unset token", config.WebhookConfig{URL: "https://example.com/hook", Token: "${HAPLOG_DIAGNOSE_UNSET}"}, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Webhooks: []config.WebhookConfig{tt.webhook}}
			results := checkWebhooks(ctx, cfg, &DiagnoseOptions{})
			if len(results) != 1 {
				t.Fatalf("len(results) = %d, want 1", len(results))
			}
			if results[0].Status != tt.status {
				t.Errorf("Status = %s, want %s (%v)", results[0].Status, tt.status, results[0].Details)
			}
		})
	}
}

func TestCheckWebhooks_VerboseProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Method = %s, want HEAD", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Webhooks: []config.WebhookConfig{{Name: "probe", URL: server.URL, Token: "s3cret"}}}
	results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{Verbose: true})

	conn, ok := findCheck(results, "Webhook Connectivity: probe")
	if !ok {
		t.Fatalf("no connectivity check in %+v", results)
	}
	if conn.Status != "ok" {
		t.Errorf("Status = %s, want ok (%s)", conn.Status, conn.Message)
	}
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	results := []DiagnosticResult{
		{Check: "Test1", Status: "ok", Message: "All good", Details: []string{"hidden"}},
		{Check: "Test2", Status: "warning", Message: "Hmm", Details: []string{"detail1"}},
		{Check: "Test3", Status: "error", Message: "Bad", Suggests: []string{"Fix it"}},
	}
	printDiagnostics(&buf, results, &DiagnoseOptions{})

	out := buf.String()
	for _, want := range []string{"[PASS] Test1", "[WARN] Test2", "- detail1", "[FAIL] Test3", "Hint: Fix it",
		"Summary: 1 passed, 1 warnings, 1 errors", "Fix the errors above"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("details of passing checks should only show in verbose mode")
	}
}

func TestRunDiagnose(t *testing.T) {
	logPath := writeTestLog(t, "haproxy.log", testLine("09/Dec/2013:12:59:46.633"))
	configPath := writeTestConfig(t, "log_sources:\n  - "+logPath+"\nstart: 09/Dec/2013\ndelta: 1d\ncommands: [top_ips]\n")

	cmd := NewDiagnoseCommand()
	cmd.SetArgs([]string{configPath})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Configuration looks good!") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestRunDiagnose_MissingConfig(t *testing.T) {
	cmd := NewDiagnoseCommand()
	cmd.SetArgs([]string{"/nonexistent/config.yaml"})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	// Diagnostics are printed, not returned as an error.
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "[FAIL] Config File") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("this is a long line", 10); got != "this is..." {
		t.Errorf("truncate(long) = %q", got)
	}
}

func findCheck(results []DiagnosticResult, check string) (DiagnosticResult, bool) {
	for _, r := range results {
		if r.Check == check {
			return r, true
		}
	}
	return DiagnosticResult{}, false
}
