package kb

import "strings"

// ChunkOptions configures word-window chunking.
type ChunkOptions struct {
	// MaxWords is the window size. Default: 200.
	MaxWords int
	// OverlapWords is shared between consecutive windows. Default: 40.
	OverlapWords int
	// MinWords is the smallest trailing window kept on its own; shorter
	// tails are merged into the previous chunk. Default: 20.
	MinWords int
}

func (o *ChunkOptions) defaults() {
	if o.MaxWords <= 0 {
		o.MaxWords = 200
	}
	if o.OverlapWords <= 0 {
		o.OverlapWords = 40
	}
	if o.OverlapWords >= o.MaxWords {
		o.OverlapWords = o.MaxWords / 5
	}
	if o.MinWords <= 0 {
		o.MinWords = 20
	}
}

// Split divides text into overlapping word windows.
func Split(text string, opts ChunkOptions) []string {
	opts.defaults()

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= opts.MaxWords {
		return []string{strings.Join(words, " ")}
	}

	stride := opts.MaxWords - opts.OverlapWords
	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := min(start+opts.MaxWords, len(words))

		if end-start < opts.MinWords && len(chunks) > 0 {
			// Append only the words the previous window has not seen.
			prevEnd := start - stride + opts.MaxWords
			if prevEnd < end {
				chunks[len(chunks)-1] += " " + strings.Join(words[prevEnd:end], " ")
			}
			break
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}
