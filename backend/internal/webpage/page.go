package webpage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"thoth/backend/pkg/logger"
)

// Filenames written into the references directory for the page the user
// is currently viewing.
const (
	currentPageHTMLFile    = "current_page_html.html"
	structuredPageDataFile = "structured_page_data.json"
)

// SavePageContent stores a page's raw HTML and its extracted structured
// data in the references directory, replacing any previous page, and
// returns the extraction result.
func SavePageContent(dir, html string) (*PageData, error) {
	log := logger.Get()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	htmlPath := filepath.Join(dir, currentPageHTMLFile)
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return nil, err
	}
	log.Info("Saved page HTML content",
		zap.Int("chars", len(html)),
		zap.String("path", htmlPath),
	)

	data := Extract(html)
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	structPath := filepath.Join(dir, structuredPageDataFile)
	if err := os.WriteFile(structPath, encoded, 0o644); err != nil {
		return nil, err
	}
	log.Info("Saved structured page data", zap.String("path", structPath))

	return data, nil
}
