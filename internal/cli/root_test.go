package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const line = `Dec  9 13:01:26 localhost haproxy[28029]: 127.0.0.1:2345 [09/Dec/2013:12:59:46.633] loadbalancer default/instance8 0/51536/1/48082/99627 200 83285 - - ---- 87/87/87/1/0 0/67 {haproxy.test.com|} {|} "GET /path/to/image HTTP/1.1"`

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	code := execute(root, args)
	return code, stdout.String(), stderr.String()
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "haproxy.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	if root.Use != "haplog" {
		t.Errorf("Use = %q", root.Use)
	}
	if root.PersistentFlags().Lookup("log-level") == nil {
		t.Error("missing --log-level")
	}

	want := []string{"analyze", "commands", "detect", "diagnose", "validate", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	clean := writeLog(t, line+"\n")
	dirty := writeLog(t, line+"\nnot a log line\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"version"}, 0},
		{"clean log", []string{"analyze", "-q", clean}, 0},
		{"invalid lines", []string{"analyze", "-q", dirty}, 1},
		{"missing file", []string{"analyze", "/nonexistent/haproxy.log"}, 2},
		{"unknown subcommand", []string{"bogus"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.want, stderr)
			}
			if tt.want == 2 && !strings.Contains(stderr, "Error:") {
				t.Errorf("stderr = %q, want an error message", stderr)
			}
		})
	}
}

func TestExecute_LogLevel(t *testing.T) {
	path := writeLog(t, line+"\n")

	_, _, stderr := run(t, "--log-level", "debug", "analyze", "-q", "-d", "1h", path)
	if !strings.Contains(stderr, "delta has no effect without a start") {
		t.Errorf("stderr = %q, want the delta warning", stderr)
	}

	_, _, stderr = run(t, "--log-level", "error", "analyze", "-q", "-d", "1h", path)
	if strings.Contains(stderr, "delta has no effect") {
		t.Errorf("stderr = %q, warnings should be hidden at error level", stderr)
	}
}
