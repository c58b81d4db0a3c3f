package verify

import (
	"reflect"
	"testing"

	"quran-corpus/internal/models"
)

func page(number int, headers []string, verses ...string) models.StructuredPage {
	var m models.StringMap
	for _, v := range verses {
		m.Set(v, "text")
	}
	return models.StructuredPage{PageNumber: number, ChapterHeaders: headers, Verses: m}
}

func testCorpus() *models.Corpus {
	return models.NewCorpus([]models.StructuredPage{
		page(1, []string{"Sura 1: The Key"}, "1", "2", "3", "4", "5", "6", "7"),
		page(2, []string{"Sura 2: The Heifer"}, "1", "2"),
		page(3, nil, "0", "3", "4"),
		page(4, []string{"Sura 3: The Amramites"}, "5", "6", "1", "2"),
	})
}

func TestCountVerses(t *testing.T) {
	got := CountVerses(testCorpus())
	want := map[int]int{1: 7, 2: 6, 3: 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountVerses() = %v, want %v", got, want)
	}
}

func TestVerify(t *testing.T) {
	got := Verify(testCorpus(), map[int]int{1: 7, 2: 286, 3: 200})
	want := []Mismatch{
		{Chapter: 2, Expected: 286, Found: 6},
		{Chapter: 3, Expected: 200, Found: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Verify() = %+v, want %+v", got, want)
	}
	if s := got[0].String(); s != "Sura 2: Expected 286 verses, found 6" {
		t.Errorf("String() = %q", s)
	}
}

func TestVerifyReportsUnexpectedChapters(t *testing.T) {
	got := Verify(testCorpus(), map[int]int{1: 7, 2: 6})
	want := []Mismatch{{Chapter: 3, Expected: 0, Found: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Verify() = %+v, want %+v", got, want)
	}
}

func TestVerifyAllMatch(t *testing.T) {
	if got := Verify(testCorpus(), map[int]int{1: 7, 2: 6, 3: 2}); len(got) != 0 {
		t.Errorf("Verify() = %+v, want none", got)
	}
}
