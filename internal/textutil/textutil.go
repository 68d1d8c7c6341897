// Package textutil holds the tokenizer, stopword list and sentence splitter
// shared by the embedder, the summarizer and lexical ranking.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Words returns the lowercased letter runs of s, apostrophe contractions kept.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// Tokens is Words without stopwords.
func Tokens(s string) []string {
	words := Words(s)
	out := words[:0]
	for _, w := range words {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// WordSet returns the distinct Words of s.
func WordSet(s string) map[string]struct{} {
	words := Words(s)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Overlap counts the distinct words of text that appear in set.
func Overlap(set map[string]struct{}, text string) int {
	n := 0
	for w := range WordSet(text) {
		if _, ok := set[w]; ok {
			n++
		}
	}
	return n
}

// Ochiai returns |A∩B| / sqrt(|A||B|) for the query word set and the words
// of text, or 0 when either is empty.
func Ochiai(query map[string]struct{}, text string) float64 {
	words := WordSet(text)
	if len(query) == 0 || len(words) == 0 {
		return 0
	}
	inter := 0
	for w := range words {
		if _, ok := query[w]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(query))*float64(len(words)))
}

// Sentences splits text into trimmed sentences. Text after the last
// terminal punctuation mark is kept as a final sentence.
func Sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether w (lowercase) is ignored for ranking.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
