package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestStringMapOrder(t *testing.T) {
	var m StringMap
	m.Set("10", "ten")
	m.Set("2", "two")
	m.Set("10", "TEN")

	if !reflect.DeepEqual(m.Keys(), []string{"10", "2"}) {
		t.Errorf("Keys() = %q", m.Keys())
	}
	if v, _ := m.Get("10"); v != "TEN" {
		t.Errorf(`Get("10") = %q`, v)
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"10":"TEN","2":"two"}`; string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}

	var back StringMap
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Keys(), m.Keys()) {
		t.Errorf("Unmarshal keys = %q", back.Keys())
	}
}

func TestStringMapUnmarshalErrors(t *testing.T) {
	var m StringMap
	if err := json.Unmarshal([]byte(`["a"]`), &m); err == nil {
		t.Error("array accepted as StringMap")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &m); err == nil {
		t.Error("number value accepted")
	}
	if err := json.Unmarshal([]byte(`null`), &m); err != nil || m.Len() != 0 {
		t.Errorf("null: err %v, len %d", err, m.Len())
	}
}

func TestCorpusOrderAndJSON(t *testing.T) {
	var v1, v2 StringMap
	v1.Set("1", "In the name of GOD.")
	v2.Set("2", "Praise be to GOD.")

	c := NewCorpus([]StructuredPage{
		{PageNumber: 10, Verses: v2},
		{PageNumber: 2, Verses: v1},
		{PageNumber: 10, Verses: v1},
	})
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Pages()[0].PageNumber != 2 || c.Pages()[1].PageNumber != 10 {
		t.Errorf("pages not ordered: %d, %d", c.Pages()[0].PageNumber, c.Pages()[1].PageNumber)
	}
	if p, ok := c.Page(10); !ok || p.Verses.Keys()[0] != "1" {
		t.Errorf("Page(10) = %+v, %v; want the last duplicate", p, ok)
	}
	if _, ok := c.Page(3); ok {
		t.Error("Page(3) found")
	}

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var back Corpus
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	b2, _ := json.Marshal(&back)
	if string(b) != string(b2) {
		t.Errorf("corpus JSON round trip:\n%s\n%s", b, b2)
	}
	if back.Pages()[0].PageNumber != 2 {
		t.Errorf("decoded page number = %d", back.Pages()[0].PageNumber)
	}
}

func TestFlattenedPayloadOrder(t *testing.T) {
	in := `{"1__1:2,1:5":"X\nY","0__1:2":"X\nY","empty_1":"B\nBee"}`

	var p FlattenedPayload
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatal(err)
	}
	if len(p) != 3 || p[0].EncodedKey != "1__1:2,1:5" || p[2].Path != "B\nBee" {
		t.Fatalf("decoded = %+v", p)
	}
	if !reflect.DeepEqual(p[0].Segments(), []string{"X", "Y"}) {
		t.Errorf("Segments() = %q", p[0].Segments())
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != in {
		t.Errorf("Marshal = %s, want %s", b, in)
	}
}

func TestPageTextRecord(t *testing.T) {
	rec := PageText{Page: 5, Text: "Sura 1:\n1. In the name of GOD."}.Record()
	if rec.PageNumber != 5 || len(rec.RawLines) != 2 {
		t.Errorf("Record() = %+v", rec)
	}
}

func TestClassificationStateString(t *testing.T) {
	want := map[ClassificationState]string{
		PageFurniture: "page",
		Title:         "title",
		Verse:         "verse",
		Footnote:      "notes",
		ChapterHeader: "sura",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), name)
		}
	}
}
