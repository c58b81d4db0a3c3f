package classifier

import (
	"strings"

	"quran-corpus/internal/models"
)

// Line is a classified line of page text
type Line struct {
	Text  string                     `json:"text"`
	State models.ClassificationState `json:"state"`
}

// Result holds one page's classified lines, routed into per-role buffers
type Result struct {
	Lines []Line

	Verses         []string
	Footnotes      []string
	ChapterHeaders []string
	PageInfo       []string

	// Titles maps a verse number to the title text introducing it.
	Titles models.StringMap
	// PendingTitles are title lines left at the end of a page with no title
	// anchor to join.
	PendingTitles []string

	// Recording reports whether the verse-range header was recognized on the page.
	Recording bool
}

// States returns the per-line state sequence
func (r *Result) States() []models.ClassificationState {
	states := make([]models.ClassificationState, len(r.Lines))
	for i, l := range r.Lines {
		states[i] = l.State
	}
	return states
}

// Classify runs the rule chain over one page's lines. Lines are trimmed and
// blank lines skipped. State never crosses pages.
func Classify(rawLines []string) *Result {
	res := &Result{}
	state := models.PageFurniture
	var titles []string
	var anchor string

	for _, raw := range rawLines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		ctx := Context{
			Recording:     res.Recording,
			TitlesPending: len(titles) > 0,
		}
		if n := len(res.Verses); n > 0 {
			ctx.LastVerse = res.Verses[n-1]
		}
		if n := len(titles); n > 0 {
			ctx.LastTitle = titles[n-1]
		}

		d := Transition(state, line, ctx)
		state = d.State

		if d.FlushAnchor != "" {
			flushTitles(&res.Titles, d.FlushAnchor, titles)
			titles = nil
			anchor = d.FlushAnchor
		}
		if d.StartRecording {
			res.Recording = true
		}

		res.Lines = append(res.Lines, Line{Text: line, State: state})
		switch state {
		case models.Title:
			titles = append(titles, line)
		case models.Verse:
			res.Verses = append(res.Verses, line)
		case models.Footnote:
			res.Footnotes = append(res.Footnotes, line)
		case models.ChapterHeader:
			res.ChapterHeaders = append(res.ChapterHeaders, line)
		default:
			res.PageInfo = append(res.PageInfo, line)
		}
	}

	// trailing title lines join the most recently flushed anchor
	if anchor != "" {
		flushTitles(&res.Titles, anchor, titles)
		titles = nil
	}
	res.PendingTitles = titles
	return res
}

func flushTitles(m *models.StringMap, anchor string, lines []string) {
	if len(lines) == 0 {
		return
	}
	text := strings.Join(lines, " ")
	if existing, ok := m.Get(anchor); ok && existing != "" {
		text = existing + " " + text
	}
	m.Set(anchor, text)
}
