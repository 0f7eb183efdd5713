package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractJSONAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "valid json",
			raw:  `{"answer": "hello world"}`,
			want: "hello world",
		},
		{
			name: "escaped quotes",
			raw:  `{"answer": "use \"fmt.Println\" for output"}`,
			want: `use "fmt.Println" for output`,
		},
		{
			name: "escaped newlines",
			raw:  `{"answer": "line1\nline2"}`,
			want: "line1\nline2",
		},
		{
			name: "no answer field",
			raw:  `{"result": "something"}`,
			want: "",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "malformed - no closing quote",
			raw:  `{"answer": "unclosed`,
			want: "unclosed",
		},
		{
			name: "extra whitespace",
			raw:  `{  "answer" :  "spaced out"  }`,
			want: "spaced out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONAnswer(tt.raw)
			if got != tt.want {
				t.Errorf("ExtractJSONAnswer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPassages(t *testing.T) {
	results := []SearchResult{
		{Title: "Go Docs", URL: "https://go.dev/doc", Content: "  Go is a language  "},
		{URL: "notes.txt", Content: "Rust is a language"},
	}

	text := BuildPassages(results, 1000)

	for _, want := range []string{
		"[1] Go Docs (https://go.dev/doc)\nGo is a language\n",
		"[2] Untitled (notes.txt)\nRust is a language\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("passages missing %q in:\n%s", want, text)
		}
	}
}

func TestBuildPassagesTruncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	text := BuildPassages([]SearchResult{{Title: "Long", URL: "https://example.com", Content: long}}, 40)

	if !strings.Contains(text, "...") {
		t.Error("expected truncation indicator")
	}
	if len(text) > 100 {
		t.Errorf("passage not truncated: %d bytes", len(text))
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"answer\": \"x\"}\n```", `{"answer": "x"}`},
		{"```\nplain\n```", "plain"},
		{"  no fences  ", "no fences"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCallLLM_Disabled(t *testing.T) {
	prev := cfg.LLMClient
	cfg.LLMClient = nil
	defer func() { cfg.LLMClient = prev }()

	if LLMEnabled() {
		t.Fatal("LLMEnabled() = true with nil client")
	}
	_, err := CallLLM(context.Background(), "", "hi")
	if !errors.Is(err, ErrLLMDisabled) {
		t.Fatalf("err = %v, want ErrLLMDisabled", err)
	}
	if _, err := AnswerFromSources(context.Background(), "q", nil, 100); !errors.Is(err, ErrLLMDisabled) {
		t.Fatalf("AnswerFromSources err = %v, want ErrLLMDisabled", err)
	}
}
