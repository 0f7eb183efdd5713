package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLLMDisabled is returned when no LLM client was configured.
var ErrLLMDisabled = errors.New("llm client not configured")

// currentDate returns today's date in ISO 8601 format (UTC).
func currentDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// LLMEnabled reports whether an LLM client is configured.
func LLMEnabled() bool { return cfg.LLMClient != nil }

// CallLLM sends a prompt using the configured temperature and max_tokens.
func CallLLM(ctx context.Context, system, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, system, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// BuildPassages numbers retrieved passages for the answer prompt. Each
// passage body is cut at a word boundary once it exceeds limit runes.
func BuildPassages(results []SearchResult, limit int) string {
	var sb strings.Builder
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i+1, title, r.URL)
		text := strings.TrimSpace(r.Content)
		if limit > 0 && len([]rune(text)) > limit {
			text = TruncateAtWord(text, limit) + "..."
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// AnswerFromSources asks the LLM to answer question using only the given
// passages. Malformed JSON degrades to the raw answer text.
func AnswerFromSources(ctx context.Context, question string, results []SearchResult, contentLimit int) (*LLMStructuredOutput, error) {
	qt := DetectQueryType(question)
	if qt == QtFact {
		contentLimit = min(contentLimit, 1000)
	}
	prompt := fmt.Sprintf(promptAnswer, currentDate(), answerInstructions[qt], question, BuildPassages(results, contentLimit))

	raw, err := CallLLM(ctx, promptSystem, prompt)
	if err != nil {
		return nil, err
	}

	var out LLMStructuredOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if answer := ExtractJSONAnswer(raw); answer != "" {
			return &LLMStructuredOutput{Answer: answer}, nil
		}
		return &LLMStructuredOutput{Answer: raw}, nil
	}
	return &out, nil
}

// ExtractJSONAnswer pulls the "answer" string out of output that failed to
// parse as JSON, typically because the model left raw newlines or quotes in
// the value. An unterminated value is returned as far as it goes.
func ExtractJSONAnswer(raw string) string {
	idx := strings.Index(raw, `"answer"`)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(raw[idx+len(`"answer"`):])
	rest, ok := strings.CutPrefix(rest, ":")
	if !ok {
		return ""
	}
	rest, ok = strings.CutPrefix(strings.TrimSpace(rest), `"`)
	if !ok {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == '"':
			return sb.String()
		case c == '\\' && i+1 < len(rest) && rest[i+1] == '"':
			sb.WriteByte('"')
			i++
		case c == '\\' && i+1 < len(rest) && rest[i+1] == 'n':
			sb.WriteByte('\n')
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
