package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGithubRawURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "blob to raw",
			url:  "https://github.com/anthropics/claude-code/blob/main/README.md",
			want: "https://raw.githubusercontent.com/anthropics/claude-code/main/README.md",
		},
		{
			name: "nested path",
			url:  "https://github.com/owner/repo/blob/v2/src/lib/utils.ts",
			want: "https://raw.githubusercontent.com/owner/repo/v2/src/lib/utils.ts",
		},
		{
			name: "non-github passthrough",
			url:  "https://stackoverflow.com/questions/12345",
			want: "https://stackoverflow.com/questions/12345",
		},
		{
			name: "github non-blob passthrough",
			url:  "https://github.com/owner/repo/issues/1",
			want: "https://github.com/owner/repo/issues/1",
		},
		{
			name: "empty string",
			url:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GithubRawURL(tt.url)
			if got != tt.want {
				t.Errorf("GithubRawURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFetchURLContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Quantum Primer</title></head><body>
<nav>Home | About</nav>
<article><h1>Quantum Primer</h1>
<p>Quantum computers use qubits that can hold superposed states. This paragraph is long enough to be considered main content by the extractor.</p>
<p>Entanglement links qubits so that measuring one constrains the other, which enables algorithms with no classical equivalent.</p>
</article><script>var x = 1;</script></body></html>`)
	}))
	defer srv.Close()

	title, content, err := FetchURLContent(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("FetchURLContent: %v", err)
	}
	if title == "" {
		t.Error("expected a title")
	}
	if !strings.Contains(content, "qubits") {
		t.Errorf("content missing body text: %q", content)
	}
	if strings.Contains(content, "var x") {
		t.Errorf("content contains script text: %q", content)
	}
}

func TestFetchURLContent_MaxChars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>", strings.Repeat("word ", 400))
	}))
	defer srv.Close()

	_, content, err := FetchURLContent(context.Background(), srv.URL, 50)
	if err != nil {
		t.Fatalf("FetchURLContent: %v", err)
	}
	if n := len([]rune(content)); n > 53 {
		t.Errorf("content has %d runes, want <= 53", n)
	}
}

func TestFetchURLContent_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := FetchURLContent(context.Background(), srv.URL, 0); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetchRawContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "  notes about qubits\n")
	}))
	defer srv.Close()

	got, err := FetchRawContent(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("FetchRawContent: %v", err)
	}
	if got != "notes about qubits" {
		t.Errorf("got %q", got)
	}
}

func TestExtractContent_DOMFallback(t *testing.T) {
	_, content := ExtractContent([]byte("<html><body><div>tiny</div></body></html>"), "https://example.com")
	if !strings.Contains(content, "tiny") {
		t.Errorf("content = %q, want it to contain %q", content, "tiny")
	}
}

func TestFetchBody_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != acceptText {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprint(gz, "compressed body")
		gz.Close()
	}))
	defer srv.Close()

	body, err := fetchBody(context.Background(), srv.URL, acceptText)
	if err != nil {
		t.Fatalf("fetchBody: %v", err)
	}
	if string(body) != "compressed body" {
		t.Errorf("body = %q", body)
	}
}
