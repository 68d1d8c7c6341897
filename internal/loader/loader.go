// Package loader reads plain-text and PDF files into domain documents.
package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragagent/internal/domain"
)

// ErrNoDocuments is returned when no input path resolves to a readable file.
var ErrNoDocuments = errors.New("no .txt, .md or .pdf documents found")

var globExtensions = map[string]struct{}{".txt": {}, ".md": {}, ".pdf": {}}

// Expand resolves glob patterns to file paths. Files matched by a pattern are
// kept only when their extension is supported; literal paths are kept as
// given. Duplicates are dropped and order is preserved.
func Expand(patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			add(p)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			if m != p && !Supported(m) {
				continue
			}
			add(m)
		}
	}
	return out
}

// Supported reports whether path has an extension the loader reads.
func Supported(path string) bool {
	_, ok := globExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load expands patterns and reads every resulting file.
func Load(patterns []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range Expand(patterns) {
		doc, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return docs, nil
}

// LoadFile reads one file. PDFs are reduced to their page text joined by
// newlines; anything else is read as UTF-8 with invalid bytes dropped.
func LoadFile(path string) (domain.Document, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = readPDF(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return NewDocument(path, text), nil
}

// NewDocument builds a document for content that did not come from LoadFile.
func NewDocument(path, content string) domain.Document {
	return domain.Document{
		ID:      HashString(path),
		Path:    path,
		Name:    filepath.Base(path),
		Content: strings.ToValidUTF8(content, ""),
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(t) != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// HashString returns a short stable identifier for s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
