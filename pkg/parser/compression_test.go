package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

func compressedContent() string {
	return haproxyLine("09/Dec/2013:12:59:46.633") + "\n" +
		"not a log line\n" +
		haproxyLine("09/Dec/2013:13:00:00.000") + "\n"
}

func writeGzip(t *testing.T, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeZstd(t *testing.T, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLogFile_CompressedInput(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"gzip", func(t *testing.T) string { return writeGzip(t, "haproxy.log.1.gz", compressedContent()) }},
		{"zst", func(t *testing.T) string { return writeZstd(t, "haproxy.log.1.zst", compressedContent()) }},
		{"zstd", func(t *testing.T) string { return writeZstd(t, "haproxy.log.1.zstd", compressedContent()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogFile(tt.path(t), "", "")
			if err != nil {
				t.Fatal(err)
			}
			lines := collect(t, l)
			if len(lines) != 2 {
				t.Errorf("got %d lines, want 2", len(lines))
			}
			assertCounters(t, l, 3, 2, 1)
		})
	}
}

func TestLogFile_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haproxy.log.gz")
	if err := os.WriteFile(path, []byte("plain text, not gzip"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLogFile(path, "", "")
	if err != nil {
		t.Fatal(err)
	}

	var gotErr error
	for _, err := range l.Lines(t.Context()) {
		gotErr = err
	}
	if !errors.Is(gotErr, ErrCompressionFailed) {
		t.Errorf("Lines() error = %v, want ErrCompressionFailed", gotErr)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"haproxy.log", "", false},
		{"haproxy.log.1.gz", "gzip", true},
		{"HAPROXY.LOG.GZ", "gzip", true},
		{"haproxy.log.zst", "zstd", true},
		{"haproxy.log.zstd", "zstd", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			codec, ok := codecFor(tt.path)
			if ok != tt.ok || codec.name != tt.want {
				t.Errorf("codecFor(%q) = %q, %v; want %q, %v", tt.path, codec.name, ok, tt.want, tt.ok)
			}
		})
	}
}
