// Package structurer turns classified page lines into structured page records
// and folds pages into the corpus.
package structurer

import (
	"log/slog"
	"regexp"
	"strings"

	"quran-corpus/internal/classifier"
	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
)

const (
	// Trailing footnote-block lines kept out of Notes.Data on an ordinary page
	defaultNotesTail = 2
	// Position, counted from the end, of the first running-total line
	defaultFirstTotalOffset = 2
)

var verseStartRe = regexp.MustCompile(`^(\d+)\.`)

// PageException overrides the structural conventions for one page whose layout
// deviates from the rest of the corpus
type PageException struct {
	Page int `json:"page"`
	// SplitPageHeader reduces the page furniture to its first line and that
	// line's last word.
	SplitPageHeader bool `json:"split_page_header,omitempty"`
	// NotesTail is the number of trailing footnote lines excluded from Notes.Data.
	NotesTail int `json:"notes_tail,omitempty"`
	// FirstTotalOffset locates the first running-total line, counted from the end.
	FirstTotalOffset int `json:"first_total_offset,omitempty"`
}

// Structurer builds StructuredPage records
type Structurer struct {
	exceptions map[int]PageException
	logger     *slog.Logger
}

// Option configures a Structurer
type Option func(*Structurer)

// WithExceptions installs per-page structural exceptions
func WithExceptions(list []PageException) Option {
	return func(s *Structurer) {
		for _, e := range list {
			s.exceptions[e.Page] = e
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Structurer) {
		s.logger = logger
	}
}

// New creates a Structurer
func New(opts ...Option) *Structurer {
	s := &Structurer{exceptions: make(map[int]PageException)}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Structure classifies one page and assembles its structured record. A page
// without verses yields an empty verse map; that is not an error.
func (s *Structurer) Structure(rec models.PageRecord) models.StructuredPage {
	res := classifier.Classify(rec.RawLines)
	exc, hasException := s.exceptions[rec.PageNumber]

	page := models.StructuredPage{
		PageNumber:     rec.PageNumber,
		PageInfo:       nonNil(res.PageInfo),
		ChapterHeaders: nonNil(res.ChapterHeaders),
		Verses:         AssembleVerses(res.Verses),
		Titles:         res.Titles,
	}

	if hasException && exc.SplitPageHeader && len(res.PageInfo) > 0 {
		first := res.PageInfo[0]
		page.PageInfo = []string{first, lastWord(first)}
	}

	notes := res.Footnotes
	if len(notes) == 0 {
		notes = res.PageInfo
	}
	page.Notes = splitNotes(notes, exc)

	if page.Verses.Len() == 0 {
		s.logger.Warn("page has no verses", "page", rec.PageNumber, "lines", len(res.Lines))
	}
	if len(res.PendingTitles) > 0 {
		s.logger.Debug("unclaimed title lines", "page", rec.PageNumber, "titles", res.PendingTitles)
	}
	return page
}

// AssembleVerses joins verse-buffer lines into verses keyed by verse number.
// Lines before the first "N." marker collect under the sentinel "0". A line
// continuing a verse that ends in a hyphen is joined without a separator.
func AssembleVerses(lines []string) models.StringMap {
	var verses models.StringMap
	current := "0"

	for _, line := range lines {
		if m := verseStartRe.FindStringSubmatch(line); m != nil {
			current = m[1]
			verses.Set(current, strings.TrimSpace(line[len(m[0]):]))
			continue
		}

		existing, ok := verses.Get(current)
		switch {
		case !ok || strings.TrimSpace(existing) == "":
			verses.Set(current, line)
		case strings.HasSuffix(existing, "-"):
			verses.Set(current, existing[:len(existing)-1]+line)
		default:
			verses.Set(current, existing+" "+line)
		}
	}
	return verses
}

// splitNotes peels the running-total lines off the end of the footnote block
func splitNotes(lines []string, exc PageException) models.Notes {
	tail := defaultNotesTail
	if exc.NotesTail > 0 {
		tail = exc.NotesTail
	}
	offset := defaultFirstTotalOffset
	if exc.FirstTotalOffset > 0 {
		offset = exc.FirstTotalOffset
	}

	n := len(lines)
	notes := models.Notes{Data: []string{}}
	if n > tail {
		notes.Data = append(notes.Data, lines[:n-tail]...)
	}
	if n >= offset {
		notes.CumulativeFrequency = lines[n-offset]
	}
	if n >= 1 {
		notes.CumulativeVerseSum = lines[n-1]
	}
	return notes
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
