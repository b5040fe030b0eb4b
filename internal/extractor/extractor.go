// Package extractor pulls structured article fields out of arbitrary news
// site markup. Each logical field has an ordered list of selector candidates;
// the first candidate yielding a non-empty value wins, so site-specific
// markup degrades gracefully to generic fallbacks.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mediapulse/article-crawler/internal/crawler"
	"github.com/mediapulse/article-crawler/internal/dates"
)

// candidate is one attempt at locating a field: a CSS selector, plus an
// optional attribute to read instead of the element text.
type candidate struct {
	selector string
	attr     string
}

var (
	titleCandidates = []candidate{
		{selector: "h1"},
		{selector: "article h1"},
		{selector: ".article-title"},
		{selector: ".headline"},
		{selector: ".post-title"},
		{selector: "title"},
	}
	contentCandidates = []candidate{
		{selector: "article"},
		{selector: "main"},
		{selector: ".article-content"},
		{selector: ".post-content"},
		{selector: ".story-content"},
		{selector: "#content"},
	}
	authorCandidates = []candidate{
		{selector: ".author"},
		{selector: ".byline"},
		{selector: ".article-author"},
		{selector: ".post-author"},
		{selector: `[rel="author"]`},
		{selector: ".author-name"},
	}
	dateCandidates = []candidate{
		{selector: "time[datetime]", attr: "datetime"},
		{selector: ".date"},
		{selector: ".article-date"},
		{selector: ".post-date"},
		{selector: ".published-date"},
		{selector: `meta[property="article:published_time"]`, attr: "content"},
	}
)

// Extractor parses raw HTML into ArticleData.
type Extractor struct {
	dates *dates.Normalizer
}

// New builds an Extractor using the given date normalizer.
func New(normalizer *dates.Normalizer) *Extractor {
	return &Extractor{dates: normalizer}
}

// Extract parses rawHTML and fills every field it can. Absent fields come
// back as empty strings; only an unparseable document is an error.
func (e *Extractor) Extract(rawHTML []byte, sourceURL string) (crawler.ArticleData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return crawler.ArticleData{}, fmt.Errorf("parse document: %w", err)
	}

	content := normalizeText(firstMatch(doc, contentCandidates))

	data := crawler.ArticleData{
		Title:       normalizeText(firstMatch(doc, titleCandidates)),
		Content:     content,
		Author:      normalizeText(firstMatch(doc, authorCandidates)),
		PublishedAt: e.dates.Normalize(firstMatch(doc, dateCandidates)),
		SourceURL:   sourceURL,
		Description: metaContent(doc, `meta[name="description"]`),
		Keywords:    metaContent(doc, `meta[name="keywords"]`),
		ImageURL:    extractImage(doc),
		WordCount:   len(strings.Fields(content)),
	}
	return data, nil
}

// firstMatch walks the candidate list in order and returns the first
// non-empty value. Candidate priority is the list order, never document
// order across candidates.
func firstMatch(doc *goquery.Document, candidates []candidate) string {
	for _, c := range candidates {
		sel := doc.Find(c.selector)
		if sel.Length() == 0 {
			continue
		}
		var value string
		if c.attr != "" {
			value, _ = sel.First().Attr(c.attr)
		} else {
			value = sel.Text()
		}
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	value, _ := doc.Find(selector).First().Attr("content")
	return value
}

// extractImage prefers the og:image meta tag and falls back to the first
// image inside an article container.
func extractImage(doc *goquery.Document) string {
	if src := metaContent(doc, `meta[property="og:image"]`); src != "" {
		return src
	}
	src, _ := doc.Find("article img").First().Attr("src")
	return src
}

// normalizeText collapses whitespace runs, newlines included, to single
// spaces and trims the ends.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
