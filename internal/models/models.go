package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PageRecord is one physical page of extracted text
type PageRecord struct {
	PageNumber int      `json:"page"`
	RawLines   []string `json:"lines"`
}

// PageText is the page shape produced by the text extractor: the whole page as one block
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Record splits the page text into raw lines
func (p PageText) Record() PageRecord {
	return PageRecord{
		PageNumber: p.Page,
		RawLines:   strings.Split(p.Text, "\n"),
	}
}

// ClassificationState is the structural role assigned to a line of page text
type ClassificationState int

const (
	PageFurniture ClassificationState = iota
	Title
	Verse
	Footnote
	ChapterHeader
)

func (s ClassificationState) String() string {
	switch s {
	case PageFurniture:
		return "page"
	case Title:
		return "title"
	case Verse:
		return "verse"
	case Footnote:
		return "notes"
	case ChapterHeader:
		return "sura"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notes holds the footnote block of a page. The last two lines of the block carry
// running totals and are kept apart from the general list.
type Notes struct {
	Data                []string `json:"data"`
	CumulativeFrequency string   `json:"cumulativefrequencyofthewordGOD"`
	CumulativeVerseSum  string   `json:"cumulativesumofverseswhereGODwordoccurs"`
}

// StructuredPage is the structured record of one page
type StructuredPage struct {
	PageNumber     int       `json:"-"`
	PageInfo       []string  `json:"page"`
	ChapterHeaders []string  `json:"sura"`
	Verses         StringMap `json:"verses"`
	Titles         StringMap `json:"titles"`
	Notes          Notes     `json:"notes"`
}

// Corpus is the set of structured pages ordered by page number
type Corpus struct {
	pages []StructuredPage
}

// NewCorpus builds a corpus from pages in any order. A later page with the same
// number replaces an earlier one.
func NewCorpus(pages []StructuredPage) *Corpus {
	byNumber := make(map[int]StructuredPage, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p
	}

	c := &Corpus{pages: make([]StructuredPage, 0, len(byNumber))}
	for _, p := range byNumber {
		c.pages = append(c.pages, p)
	}
	sort.Slice(c.pages, func(i, j int) bool {
		return c.pages[i].PageNumber < c.pages[j].PageNumber
	})
	return c
}

// Pages returns the pages in increasing page-number order
func (c *Corpus) Pages() []StructuredPage {
	return c.pages
}

// Page returns the page with the given number
func (c *Corpus) Page(number int) (StructuredPage, bool) {
	i := sort.Search(len(c.pages), func(i int) bool {
		return c.pages[i].PageNumber >= number
	})
	if i < len(c.pages) && c.pages[i].PageNumber == number {
		return c.pages[i], true
	}
	return StructuredPage{}, false
}

// Len returns the number of pages
func (c *Corpus) Len() int {
	return len(c.pages)
}

// MarshalJSON encodes the corpus as an object keyed by page number in page order
func (c *Corpus) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range c.pages {
		if i > 0 {
			b.WriteByte(',')
		}
		body, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", p.PageNumber, err)
		}
		b.WriteString(strconv.Quote(strconv.Itoa(p.PageNumber)))
		b.WriteByte(':')
		b.Write(body)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes an object keyed by page number
func (c *Corpus) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	pages := make([]StructuredPage, 0, len(raw))
	for key, body := range raw {
		number, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid page number %q: %w", key, err)
		}
		var p StructuredPage
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("failed to decode page %d: %w", number, err)
		}
		p.PageNumber = number
		pages = append(pages, p)
	}
	*c = *NewCorpus(pages)
	return nil
}

// FlattenedEntry is one leaf of a taxonomy in its path-encoded form
type FlattenedEntry struct {
	EncodedKey string `json:"key"`
	Path       string `json:"path"`
}

// PathSeparator joins the segments of FlattenedEntry.Path
const PathSeparator = "\n"

// Segments splits the path into its segments
func (e FlattenedEntry) Segments() []string {
	return strings.Split(e.Path, PathSeparator)
}

// FlattenedPayload is the key/value document exchanged with the translation store.
// It keeps the document order of its entries.
type FlattenedPayload []FlattenedEntry

// MarshalJSON encodes the payload as an object of encodedKey -> path
func (p FlattenedPayload) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(e.EncodedKey)
		if err != nil {
			return nil, err
		}
		path, err := json.Marshal(e.Path)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(path)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes an object of encodedKey -> path in document order
func (p *FlattenedPayload) UnmarshalJSON(data []byte) error {
	var out FlattenedPayload
	err := decodeOrderedObject(data, func(key string, value json.RawMessage) error {
		var path string
		if err := json.Unmarshal(value, &path); err != nil {
			return fmt.Errorf("entry %q: path must be a string: %w", key, err)
		}
		out = append(out, FlattenedEntry{EncodedKey: key, Path: path})
		return nil
	})
	if err != nil {
		return err
	}
	*p = out
	return nil
}
