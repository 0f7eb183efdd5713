package transcript

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultDir is where transcript files are written unless configured otherwise.
	DefaultDir = "output/transcriptions"

	// LineWidth bounds each body line of a record.
	LineWidth = 400

	recordBegin = "===== BEGIN TRANSCRIPT ====="
	recordEnd   = "===== END TRANSCRIPT ====="
)

// invalidFileRunes are characters that cannot appear in a file name.
var invalidFileRunes = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// Record is one persisted transcript attempt.
type Record struct {
	VideoID  string
	Language string
	Source   SourceType
	SavedAt  time.Time
	Text     string
}

// Bytes renders the record in its on-disk form.
func (r Record) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString(recordBegin + "\n")
	fmt.Fprintf(&b, "Video ID: %s\n", r.VideoID)
	fmt.Fprintf(&b, "Language: %s\n", r.Language)
	fmt.Fprintf(&b, "Source: %s\n", r.Source)
	fmt.Fprintf(&b, "Saved At: %s\n", r.SavedAt.Format(time.RFC3339))
	for _, line := range Wrap(r.Text, LineWidth) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\n" + recordEnd + "\n\n")
	return b.Bytes()
}

// Store appends transcript records to one file per query. Records are never
// rewritten; each is written with a single write under a store-wide lock.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created on first append.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// Path returns the transcript file for query.
func (s *Store) Path(query string) string {
	return filepath.Join(s.dir, "transcript_"+fileKey(query)+".txt")
}

// Append writes rec to the file of query and returns its path.
func (s *Store) Append(query string, rec Record) (string, error) {
	path := s.Path(query)
	data := rec.Bytes()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return path, fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return path, fmt.Errorf("open transcript file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return path, fmt.Errorf("append transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("close transcript file: %w", err)
	}
	return path, nil
}

// fileKey keeps the query readable in the file name and replaces only
// characters that are invalid in paths.
func fileKey(query string) string {
	key := strings.TrimSpace(invalidFileRunes.ReplaceAllString(query, "_"))
	if key == "" || key == "." || key == ".." {
		return "default"
	}
	return key
}
