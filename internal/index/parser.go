// Package index parses the glossary/index section of the source text into the
// nested taxonomy: category letter -> entry -> (theme ->) reference list.
package index

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	cerrors "quran-corpus/internal/errors"
	"quran-corpus/internal/logging"
	"quran-corpus/internal/refs"
	"quran-corpus/internal/taxonomy"
)

// DefaultMaxPage is the last page number of the verse corpus; index folios lie above it
const DefaultMaxPage = 394

var (
	categoryRe = regexp.MustCompile(`^[A-Z]$`)
	folioRe    = regexp.MustCompile(`^\d{3}$`)
)

// themeMarker introduces a theme line in the source index
const themeMarker = "%"

// Parser converts index text into a taxonomy
type Parser struct {
	maxPage int
	merger  *refs.Merger
	logger  *slog.Logger
	less    taxonomy.Less
}

// Option configures a Parser
type Option func(*Parser)

// WithMaxPage sets the highest corpus page number; bare three-digit numbers
// above it are index folios and are dropped
func WithMaxPage(n int) Option {
	return func(p *Parser) { p.maxPage = n }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithLess sets the key order of the resulting taxonomy
func WithLess(less taxonomy.Less) Option {
	return func(p *Parser) { p.less = less }
}

// NewParser creates a Parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxPage: DefaultMaxPage, less: taxonomy.ByteOrder}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDefault(p.logger)
	p.merger = refs.NewMerger(p.logger)
	return p
}

// ParsePages parses page-text blocks; it is ParseLines over the blocks split on newlines
func (p *Parser) ParsePages(pages []string) (*taxonomy.Node, error) {
	var lines []string
	for _, page := range pages {
		lines = append(lines, strings.Split(page, "\n")...)
	}
	return p.ParseLines(lines)
}

// ParseLines parses raw index lines
func (p *Parser) ParseLines(lines []string) (*taxonomy.Node, error) {
	st := &state{
		builder: taxonomy.NewBuilder(p.merger, p.logger),
		logger:  p.logger,
	}

	kept := 0
	for _, raw := range lines {
		line := normalize(raw)
		if line == "" || p.isFurniture(line) {
			continue
		}
		kept++
		st.feed(line)
	}
	st.flush()

	if kept == 0 || st.entries == 0 {
		return nil, cerrors.EmptyDocument("parse index", "index entries")
	}

	root := st.builder.Root()
	root.Sort(p.less)
	return root, nil
}

// isFurniture reports running headers and folio numbers
func (p *Parser) isFurniture(line string) bool {
	if strings.EqualFold(line, "index") {
		return true
	}
	if folioRe.MatchString(line) {
		n, _ := strconv.Atoi(line)
		return n > p.maxPage
	}
	return false
}

func normalize(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\u00c2\u00a0", " "))
}

// entry is the sub-entry being read: its own reference text plus themes
type entry struct {
	category string
	key      string
	own      string
	themes   []theme
}

type theme struct {
	key   string
	value string
}

type state struct {
	builder  *taxonomy.Builder
	logger   *slog.Logger
	category string
	current  *entry
	entries  int
}

func (s *state) feed(line string) {
	if categoryRe.MatchString(line) {
		s.flush()
		s.category = line
		return
	}

	if _, after, ok := strings.Cut(line, themeMarker); ok {
		s.addTheme(strings.TrimSpace(after))
		return
	}

	if s.category == "" && unicode.IsLetter([]rune(line)[0]) {
		// entries before any letter marker open their letter implicitly
		s.category = initial(line)
	}

	switch {
	case s.category != "" && strings.HasPrefix(line, s.category):
		s.open(s.category, line)
	case hasLetterBeforeDigit(line) && s.current == nil:
		// an entry that does not start with the open letter is filed under its own
		s.logger.Warn("index entry outside its letter", "category", s.category, "line", line)
		s.open(initial(line), line)
	case hasLetterBeforeDigit(line):
		s.addTheme(line)
	default:
		s.continueValue(line)
	}
}

func (s *state) open(category, line string) {
	s.flush()
	key, text := splitAtDigit(line)
	s.current = &entry{category: category, key: key, own: text}
}

func (s *state) addTheme(line string) {
	if s.current == nil {
		s.logger.Warn("index theme without entry", "category", s.category, "line", line)
		return
	}
	key, text := splitAtDigit(line)
	s.current.themes = append(s.current.themes, theme{key: key, value: text})
}

// continueValue appends wrapped reference text to the value written last
func (s *state) continueValue(line string) {
	if s.current == nil {
		s.logger.Warn("index continuation without entry", "category", s.category, "line", line)
		return
	}
	if n := len(s.current.themes); n > 0 {
		s.current.themes[n-1].value = joinContinuation(s.current.themes[n-1].value, line)
		return
	}
	s.current.own = joinContinuation(s.current.own, line)
}

// flush writes the current entry into the taxonomy
func (s *state) flush() {
	e := s.current
	s.current = nil
	if e == nil {
		return
	}
	s.entries++

	if len(e.themes) == 0 {
		s.builder.Insert([]string{e.category, e.key}, e.own)
		return
	}
	if e.own != "" {
		s.builder.Insert([]string{e.category, e.key, taxonomy.EmptySlot}, e.own)
	}
	for _, t := range e.themes {
		s.builder.Insert([]string{e.category, e.key, t.key}, t.value)
	}
}

// joinContinuation merges a wrapped line: directly after a hyphen, with a space
// after a semicolon, and with "; " otherwise
func joinContinuation(prev, next string) string {
	prev = strings.TrimRight(prev, " ")
	if prev == "" {
		return next
	}
	switch prev[len(prev)-1] {
	case '-':
		return prev + next
	case ';':
		return prev + " " + next
	default:
		return prev + refs.ListSeparator + next
	}
}

// splitAtDigit splits a line into the text before its first digit and the rest
func splitAtDigit(line string) (string, string) {
	i := strings.IndexFunc(line, unicode.IsDigit)
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i:])
}

// initial returns the upper-cased first letter before the first digit of line
func initial(line string) string {
	for _, r := range line {
		if unicode.IsDigit(r) {
			break
		}
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

func hasLetterBeforeDigit(line string) bool {
	for _, r := range line {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
