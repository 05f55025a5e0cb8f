package webpage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"thoth/backend/pkg/logger"
)

// DefaultReferenceLimit caps each reference file's contribution to the
// prompt context, leaving room for memory and the query itself.
const DefaultReferenceLimit = 12000

// maxConcurrentReads bounds the read fan-out; PDF parsing is slow.
const maxConcurrentReads = 4

const truncationMarker = "\n... [content truncated due to length]"

// ReadReferencesDir reads every supported file directly under dir. A
// missing or unreadable directory yields an empty map.
func ReadReferencesDir(dir string, limit int) map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Get().Warn("References directory is not readable",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return map[string]string{}
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return ReadReferences(paths, limit)
}

// ReadReferences reads the given files into a path-keyed map of text
// content, each entry truncated at limit characters. Unsupported types
// and unreadable files are skipped; the caller always gets whatever
// could be read.
func ReadReferences(paths []string, limit int) map[string]string {
	log := logger.Get()
	if limit <= 0 {
		limit = DefaultReferenceLimit
	}

	contents := make([]string, len(paths))

	var g errgroup.Group
	g.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		g.Go(func() error {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				log.Debug("Skipping non-file reference", zap.String("path", path))
				return nil
			}

			content, supported, err := readReference(path)
			if err != nil {
				log.Error("Failed to read reference file", zap.String("path", path), zap.Error(err))
				return nil
			}
			if !supported {
				log.Debug("Skipping unsupported reference type", zap.String("path", path))
				return nil
			}

			if len(content) > limit {
				log.Warn("Truncating reference content",
					zap.String("path", path),
					zap.Int("from", len(content)),
					zap.Int("to", limit),
				)
				content = content[:limit] + truncationMarker
			}
			contents[i] = content
			return nil
		})
	}
	// Workers log and skip failures rather than returning errors.
	_ = g.Wait()

	references := make(map[string]string, len(paths))
	for i, path := range paths {
		if contents[i] != "" {
			references[path] = contents[i]
		}
	}

	log.Info("Processed reference files", zap.Int("count", len(references)))
	return references
}

func readReference(path string) (string, bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".py", ".html":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", true, err
		}
		return string(data), true, nil
	case ".pdf":
		content, err := readPDF(path)
		return content, true, err
	default:
		return "", false, nil
	}
}

// readPDF renders each page's plain text under a page banner. Pages
// whose text cannot be extracted still get their banner, so page
// numbering stays aligned with the source document.
func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("PDF CONTENT:\n\n")
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", i, text)
	}
	return b.String(), nil
}
