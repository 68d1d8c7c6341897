package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"ragagent/internal/domain"
)

// DefaultSeparators are tried in order; the empty separator splits between
// characters and guarantees progress on text with no whitespace.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits text on the coarsest separator that keeps pieces
// under the chunk size, recursing to finer separators for pieces that are
// still too long, then merges adjacent pieces back up to the size limit with
// overlap carried over from the previous chunk. Sizes are counted in runes.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewRecursiveSplitter returns a splitter. Without explicit separators it
// uses DefaultSeparators.
func NewRecursiveSplitter(chunkSize, overlap int, separators ...string) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveSplitter{chunkSize: chunkSize, overlap: overlap, separators: separators}
}

// Chunk implements domain.Chunker.
func (s *RecursiveSplitter) Chunk(document domain.Document) ([]domain.Chunk, error) {
	texts := s.Split(document.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(i),
			Source:     document.Name,
			Text:       text,
			Index:      i,
		})
	}
	return chunks, nil
}

// Split returns the chunk texts for text, whitespace-trimmed and non-empty.
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var next []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				final = append(final, t)
			}
			continue
		}
		final = append(final, s.split(piece, next)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks no longer than chunkSize. When a chunk is
// emitted, pieces are dropped from its front until at most overlap runes
// remain; those carry over into the next chunk.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				out = append(out, doc)
			}
			for len(current) > 0 && (total > s.overlap || total+n > s.chunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepingSeparator splits text on sep and prefixes every piece after
// the first with the separator. An empty sep splits into single runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
