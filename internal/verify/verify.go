// Package verify checks a structured corpus against the expected number of
// verses in every chapter, to catch verses the classifier lost.
package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"quran-corpus/internal/models"
)

var chapterNumberRe = regexp.MustCompile(`^Sura (\d+)`)

// Mismatch is a chapter whose verse count differs from the expected one
type Mismatch struct {
	Chapter  int `json:"chapter"`
	Expected int `json:"expected"`
	Found    int `json:"found"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("Sura %d: Expected %d verses, found %d", m.Chapter, m.Expected, m.Found)
}

// CountVerses counts the verses of each chapter. Chapters are read from the
// chapter-header lines; a page's verses switch to its next header's chapter when
// the verse numbering restarts. The "0" continuation fragment is not counted.
func CountVerses(c *models.Corpus) map[int]int {
	counts := make(map[int]int)
	chapter := 0

	for _, page := range c.Pages() {
		var headers []int
		for _, line := range page.ChapterHeaders {
			if m := chapterNumberRe.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				headers = append(headers, n)
			}
		}

		prev := 0
		for _, key := range page.Verses.Keys() {
			n, err := strconv.Atoi(key)
			if err != nil || n == 0 {
				continue
			}
			if len(headers) > 0 && (chapter == 0 || n <= prev || n == 1) {
				chapter = headers[0]
				headers = headers[1:]
			}
			prev = n
			if chapter != 0 {
				counts[chapter]++
			}
		}
	}
	return counts
}

// Verify compares the corpus with the expected per-chapter verse counts and
// returns the mismatches ordered by chapter
func Verify(c *models.Corpus, expected map[int]int) []Mismatch {
	found := CountVerses(c)

	var out []Mismatch
	for chapter, want := range expected {
		if got := found[chapter]; got != want {
			out = append(out, Mismatch{Chapter: chapter, Expected: want, Found: got})
		}
	}
	for chapter, got := range found {
		if _, ok := expected[chapter]; !ok && len(expected) > 0 {
			out = append(out, Mismatch{Chapter: chapter, Expected: 0, Found: got})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Chapter < out[j].Chapter
	})
	return out
}
