// Package classifier assigns a structural role to every line of a page of
// extracted text. The page carries no markup, so roles are inferred from layout
// regularities of the source: verse markers are "N.", titles precede verses and
// end without a period, footnotes start with "*", page furniture is bare numbers
// and verse-range headers, and a trailing hyphen is a line-wrap continuation.
//
// The rule chain is a finite-state machine. Transition is pure: given the state
// carried in from the previous line, the line, and the page context, it returns
// the resolved state and the side effects for the caller to apply.
package classifier

import (
	"regexp"
	"strings"

	"quran-corpus/internal/models"
)

// CorruptedDash is how an em dash reads after a UTF-8/cp1252 mix-up in extraction
const CorruptedDash = "\u00e2\u20ac"

var (
	leadingDigitsRe = regexp.MustCompile(`^\d+`)
	verseMarkerRe   = regexp.MustCompile(`^(\d+)\.`)
	chapterHeaderRe = regexp.MustCompile(`^Sura \d+:`)
	verseRangeRe    = regexp.MustCompile(`\d+:\d+-\d+`)
	folioRe         = regexp.MustCompile(`^\d+$`)
)

// Context is the page state a transition may read
type Context struct {
	// Recording is sticky for the rest of the page once a verse-range
	// marker has been seen directly after body text.
	Recording bool
	// LastVerse is the most recently buffered verse line.
	LastVerse string
	// LastTitle is the most recently buffered, not yet flushed, title line.
	LastTitle string
	// TitlesPending reports whether the title buffer is non-empty.
	TitlesPending bool
}

// Decision is the outcome of classifying one line
type Decision struct {
	State models.ClassificationState
	// FlushAnchor, when set, is the verse number the pending title lines belong to.
	FlushAnchor string
	// StartRecording turns on Context.Recording for the rest of the page.
	StartRecording bool
	// Fired lists the rules that matched, in evaluation order.
	Fired []string
}

type input struct {
	prev models.ClassificationState
	line string
	ctx  Context
}

// rule applies to d when its guard holds and reports whether it matched
type rule struct {
	name  string
	apply func(d *Decision, in input) bool
}

// rules in precedence order; later rules override earlier ones
var rules = []rule{
	{"default", ruleDefault},
	{"footnote", ruleFootnote},
	{"sentence-end", ruleSentenceEnd},
	{"unterminated", ruleUnterminated},
	{"verse-marker", ruleVerseMarker},
	{"chapter-header", ruleChapterHeader},
	{"after-title", ruleAfterTitle},
	{"verse-range", ruleVerseRange},
	{"folio", ruleFolio},
}

// Rules returns the rule names in precedence order
func Rules() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// Transition classifies one trimmed, non-blank line
func Transition(prev models.ClassificationState, line string, ctx Context) Decision {
	in := input{prev: prev, line: line, ctx: ctx}
	d := Decision{State: prev}
	for _, r := range rules {
		if r.apply(&d, in) {
			d.Fired = append(d.Fired, r.name)
		}
	}
	return d
}

// ruleDefault resets a line that follows page furniture
func ruleDefault(d *Decision, in input) bool {
	if in.prev != models.PageFurniture {
		return false
	}
	switch {
	case in.ctx.Recording:
		d.State = models.Verse
	case leadingDigitsRe.MatchString(in.line):
		d.State = models.PageFurniture
	default:
		d.State = models.Title
	}
	return true
}

// ruleFootnote: footnotes are contiguous at the page tail, so the state sticks
func ruleFootnote(d *Decision, in input) bool {
	if !strings.HasPrefix(in.line, "*") {
		return false
	}
	d.State = models.Footnote
	return true
}

// ruleSentenceEnd: a finished verse sentence means a new section may start
func ruleSentenceEnd(d *Decision, in input) bool {
	if d.State == models.Footnote || in.ctx.LastVerse == "" {
		return false
	}
	v := in.ctx.LastVerse
	if strings.HasSuffix(v, ".") || strings.HasSuffix(v, ";") || strings.HasSuffix(v, CorruptedDash) {
		d.State = models.Title
		return true
	}
	return false
}

func ruleUnterminated(d *Decision, in input) bool {
	if d.State != models.PageFurniture || strings.HasSuffix(in.line, ".") {
		return false
	}
	d.State = models.Title
	return true
}

// ruleVerseMarker: "N." opens verse N; title lines gathered so far belong to it
func ruleVerseMarker(d *Decision, in input) bool {
	if d.State == models.Footnote {
		return false
	}
	m := verseMarkerRe.FindStringSubmatch(in.line)
	if m == nil {
		return false
	}
	if d.State == models.Title && in.ctx.TitlesPending {
		d.FlushAnchor = m[1]
	}
	d.State = models.Verse
	return true
}

func ruleChapterHeader(d *Decision, in input) bool {
	if d.State == models.Footnote || strings.HasSuffix(in.line, ".") {
		return false
	}
	if !chapterHeaderRe.MatchString(in.line) {
		return false
	}
	d.State = models.ChapterHeader
	return true
}

// ruleAfterTitle: a terminated line after a complete title is body text
func ruleAfterTitle(d *Decision, in input) bool {
	if d.State == models.Footnote || !strings.HasSuffix(in.line, ".") {
		return false
	}
	if !in.ctx.TitlesPending || strings.HasSuffix(in.ctx.LastTitle, "-") {
		return false
	}
	d.State = models.Verse
	return true
}

// ruleVerseRange: a "C:V-V" marker after body text is the page's range header
func ruleVerseRange(d *Decision, in input) bool {
	if d.State == models.Footnote || !verseRangeRe.MatchString(in.line) {
		return false
	}
	if in.prev == models.Verse || d.State == models.Verse {
		d.StartRecording = true
	}
	d.State = models.PageFurniture
	return true
}

func ruleFolio(d *Decision, in input) bool {
	if d.State == models.Footnote || !folioRe.MatchString(in.line) {
		return false
	}
	d.State = models.PageFurniture
	return true
}
