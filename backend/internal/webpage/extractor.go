// Package webpage turns web pages and reference files into structured
// context the assistant can reason about: form fields, search results,
// article outlines, and bounded reference text.
package webpage

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"thoth/backend/pkg/logger"
)

// Page types reported by Extract.
const (
	PageTypeSearch  = "search"
	PageTypeForm    = "form"
	PageTypeArticle = "article"
	PageTypeUnknown = "unknown"
)

const (
	maxSearchResults         = 10
	searchContainerThreshold = 3
	formPageThreshold        = 5
)

// searchResultSelectors matches the result containers of common search
// engines.
const searchResultSelectors = "div.g, div.result, div.search-result, div.serp-item, .searchResult"

// searchURLHints flag og:url values that look like a search page.
var searchURLHints = []string{"search", "query", "q=", "find"}

// FormField describes one input element on a page.
type FormField struct {
	Type        string `json:"type"`
	InputType   string `json:"input_type,omitempty"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Value       string `json:"value"`
	Required    bool   `json:"required"`
}

// SearchResult is one entry scraped from a search results page.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Section is one sub-heading inside an article.
type Section struct {
	Header string `json:"header"`
	Level  string `json:"level"`
}

// ArticleOutline summarizes an article page's structure.
type ArticleOutline struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// PageData is the structured view of a web page.
type PageData struct {
	FormFields    []FormField     `json:"form_fields"`
	SearchResults []SearchResult  `json:"search_results"`
	PageType      string          `json:"page_type"`
	KeyElements   *ArticleOutline `json:"key_elements,omitempty"`
}

// Extract parses HTML into form fields, search results, and a detected
// page type. Empty or unparseable input degrades to an empty result.
func Extract(html string) *PageData {
	log := logger.Get()
	data := &PageData{
		FormFields:    []FormField{},
		SearchResults: []SearchResult{},
		PageType:      PageTypeUnknown,
	}

	if strings.TrimSpace(html) == "" {
		log.Warn("No HTML content provided for extraction")
		return data
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Error("Failed to parse HTML", zap.Error(err))
		return data
	}

	doc.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		field := FormField{
			Type:        goquery.NodeName(s),
			ID:          s.AttrOr("id", ""),
			Name:        s.AttrOr("name", ""),
			Placeholder: s.AttrOr("placeholder", ""),
			Value:       s.AttrOr("value", ""),
		}
		_, field.Required = s.Attr("required")
		if field.Type == "input" {
			field.InputType = s.AttrOr("type", "text")
		}
		data.FormFields = append(data.FormFields, field)
	})

	// A search-looking og:url suppresses form/article classification
	// even when no result containers are recognized.
	isSearch := false
	if metaURL, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok {
		lower := strings.ToLower(metaURL)
		for _, hint := range searchURLHints {
			if strings.Contains(lower, hint) {
				isSearch = true
				break
			}
		}
	}

	containers := doc.Find(searchResultSelectors)
	if containers.Length() > searchContainerThreshold {
		isSearch = true
		containers.EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= maxSearchResults {
				return false
			}
			data.SearchResults = append(data.SearchResults, SearchResult{
				Title:   strings.TrimSpace(s.Find("h3, h2, .title").First().Text()),
				URL:     s.Find("a").First().AttrOr("href", ""),
				Snippet: strings.TrimSpace(s.Find("span.snippet, div.snippet, p, .description").First().Text()),
			})
			return true
		})
		data.PageType = PageTypeSearch
	}

	if !isSearch {
		switch {
		case len(data.FormFields) > formPageThreshold:
			data.PageType = PageTypeForm
		case doc.Find("article, main").Length() > 0 && doc.Find("h1, h2").Length() > 0:
			data.PageType = PageTypeArticle
			outline := &ArticleOutline{
				Title:    strings.TrimSpace(doc.Find("h1").First().Text()),
				Sections: []Section{},
			}
			doc.Find("article, main").First().Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
				outline.Sections = append(outline.Sections, Section{
					Header: strings.TrimSpace(h.Text()),
					Level:  goquery.NodeName(h),
				})
			})
			data.KeyElements = outline
		}
	}

	log.Debug("Extracted structured page data",
		zap.Int("form_fields", len(data.FormFields)),
		zap.Int("search_results", len(data.SearchResults)),
		zap.String("page_type", data.PageType),
	)
	return data
}
