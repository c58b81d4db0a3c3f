// internal/processor/pdf.go
package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// DefaultSubstitutions fixes character sequences the extractor is known to garble.
// The corrupted em dash is left alone: the line classifier reads it as a sentence end.
var DefaultSubstitutions = map[string]string{
	"\u00c2\u00a0": " ",
	"\u00a0":       " ",
	"\ufb01":       "fi",
	"\ufb02":       "fl",
	"\u2019":       "'",
}

// PDFProcessor extracts page text and cleans it before classification
type PDFProcessor struct {
	replacer *strings.Replacer
	logger   *slog.Logger
}

// NewPDFProcessor creates a processor applying DefaultSubstitutions plus extra
func NewPDFProcessor(extra map[string]string, logger *slog.Logger) *PDFProcessor {
	table := make(map[string]string, len(DefaultSubstitutions)+len(extra))
	for k, v := range DefaultSubstitutions {
		table[k] = v
	}
	for k, v := range extra {
		table[k] = v
	}

	// longest keys first so overlapping entries resolve the same way every run
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, 2*len(table))
	for _, k := range keys {
		pairs = append(pairs, k, table[k])
	}

	return &PDFProcessor{
		replacer: strings.NewReplacer(pairs...),
		logger:   logging.OrDefault(logger),
	}
}

// Clean normalizes text to NFC and applies the substitution table
func (p *PDFProcessor) Clean(text string) string {
	return p.replacer.Replace(norm.NFC.String(text))
}

// ExtractPages extracts pages start..end (inclusive, 1-based; end 0 means the
// last page) from a PDF file
func (p *PDFProcessor) ExtractPages(filePath string, start, end int) ([]models.PageRecord, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if end == 0 || end > total {
		end = total
	}
	if start < 1 {
		start = 1
	}

	var pages []models.PageRecord
	for i := start; i <= end; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			p.logger.Warn("skipping empty PDF page", "page", i)
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", i, err)
		}

		pages = append(pages, p.record(i, text))
	}

	p.logger.Info("extracted PDF pages", "path", filePath, "pages", len(pages), "total", total)
	return pages, nil
}

// LoadPageTexts reads the extractor's JSON output, an array of {"page", "text"}
func (p *PDFProcessor) LoadPageTexts(r io.Reader) ([]models.PageRecord, error) {
	var texts []models.PageText
	if err := json.NewDecoder(r).Decode(&texts); err != nil {
		return nil, fmt.Errorf("failed to decode page texts: %w", err)
	}

	pages := make([]models.PageRecord, 0, len(texts))
	for _, t := range texts {
		pages = append(pages, p.record(t.Page, t.Text))
	}
	return pages, nil
}

func (p *PDFProcessor) record(number int, text string) models.PageRecord {
	return models.PageText{Page: number, Text: p.Clean(text)}.Record()
}
