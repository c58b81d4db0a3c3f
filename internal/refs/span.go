package refs

import (
	"fmt"
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Span is one chapter:verse[-verseEnd] reference
type Span struct {
	// Chapter is the chapter (sura) number.
	Chapter int `json:"chapter"`

	// VerseStart is the first verse, 0 for a whole-chapter reference.
	VerseStart int `json:"verse_start,omitempty"`

	// VerseEnd is the last verse of a range, 0 when the span is a single verse.
	VerseEnd int `json:"verse_end,omitempty"`
}

func (s Span) String() string {
	switch {
	case s.VerseStart == 0:
		return fmt.Sprintf("%d", s.Chapter)
	case s.VerseEnd > 0:
		return fmt.Sprintf("%d:%d-%d", s.Chapter, s.VerseStart, s.VerseEnd)
	default:
		return fmt.Sprintf("%d:%d", s.Chapter, s.VerseStart)
	}
}

// Key orders reference literals by (chapter, verseStart)
type Key struct {
	Chapter int
	Verse   int
}

// EndKey is the key of an unparseable literal; it sorts after every valid key.
var EndKey = Key{Chapter: math.MaxInt, Verse: math.MaxInt}

// Compare returns -1, 0 or +1
func (k Key) Compare(other Key) int {
	switch {
	case k.Chapter < other.Chapter:
		return -1
	case k.Chapter > other.Chapter:
		return 1
	case k.Verse < other.Verse:
		return -1
	case k.Verse > other.Verse:
		return 1
	}
	return 0
}

// literalGrammar parses "7", "9:23", "9:23-24", "4:11,14" and "2:1-3,5".
//
//nolint:govet // participle grammar tags are not standard struct tags
type literalGrammar struct {
	Chapter int          `@Int`
	Verses  []*versePart `( ":" @@ ( "," @@ )* )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Start int  `@Int`
	End   *int `( "-" @Int )?`
}

// literalLexer never fails: anything unexpected becomes an Other token and is
// rejected (or left trailing) by the parser.
var literalLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:,\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

var literalParser = participle.MustBuild[literalGrammar](
	participle.Lexer(literalLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a single reference literal into its spans. A chapter-only literal
// yields one span with VerseStart 0. Trailing text after a valid prefix is ignored.
func Parse(literal string) ([]Span, error) {
	s := strings.Trim(literal, " \t()[].")
	if s == "" {
		return nil, fmt.Errorf("empty reference literal")
	}

	parsed, err := literalParser.ParseString("", s, participle.AllowTrailing(true))
	if err != nil {
		return nil, fmt.Errorf("invalid reference literal %q: %w", literal, err)
	}

	if len(parsed.Verses) == 0 {
		return []Span{{Chapter: parsed.Chapter}}, nil
	}

	spans := make([]Span, 0, len(parsed.Verses))
	for _, v := range parsed.Verses {
		span := Span{Chapter: parsed.Chapter, VerseStart: v.Start}
		if v.End != nil {
			span.VerseEnd = *v.End
		}
		spans = append(spans, span)
	}
	return spans, nil
}

// SortKey returns the (chapter, verseStart) of the literal's first span, or EndKey
// when the literal cannot be parsed.
func SortKey(literal string) Key {
	spans, err := Parse(literal)
	if err != nil || len(spans) == 0 {
		return EndKey
	}
	return Key{Chapter: spans[0].Chapter, Verse: spans[0].VerseStart}
}

// Literals splits a reference list into its literals. The list is split on ';'
// and then on ','; a comma piece holding a ':' starts a new literal, otherwise it
// continues the previous one ("4:11,14" stays whole, "1:2,1:5" splits in two).
func Literals(list string) []string {
	var out []string
	for _, group := range strings.Split(list, ";") {
		var current string
		for _, piece := range strings.Split(group, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			if current != "" && !strings.Contains(piece, ":") {
				current += "," + piece
				continue
			}
			if current != "" {
				out = append(out, current)
			}
			current = piece
		}
		if current != "" {
			out = append(out, current)
		}
	}
	return out
}
