package translation

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
	"quran-corpus/internal/taxonomy"
)

// fakeGenerator answers from a fixed dictionary keyed by the entry in the prompt
type fakeGenerator struct {
	mu      sync.Mutex
	answers map[string]string
	calls   map[string]int
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, rest, _ := strings.Cut(prompt, "Entry: ")
	entry, _, _ := strings.Cut(rest, "\n")

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[entry]++
	return f.answers[entry], nil
}

func TestSegments(t *testing.T) {
	entries := []models.FlattenedEntry{
		{EncodedKey: "0__1:1", Path: "A\nAdam\n"},
		{EncodedKey: "0__2:2", Path: "A\nAaron"},
		{EncodedKey: "1__1:1", Path: "B\nAdam"},
	}
	want := []string{"A", "Adam", "Aaron", "B"}
	if got := Segments(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %q, want %q", got, want)
	}
}

func TestTranslatePayload(t *testing.T) {
	gen := &fakeGenerator{answers: map[string]string{
		"G":        "D",
		"GOD":      "  DIEU\nextra commentary",
		"mercy of": "misericorde de",
		"names of": "",
	}}
	tr := NewTranslator(gen, "French", 3, logging.Discard())

	entries := []models.FlattenedEntry{
		{EncodedKey: "0__6:12", Path: "G\nGOD\nmercy of"},
		{EncodedKey: "0__7:180", Path: "G\nGOD\nnames of"},
		{EncodedKey: "0__1:1", Path: "G\nGOD\n"},
	}
	got, err := tr.TranslatePayload(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}

	want := []models.FlattenedEntry{
		{EncodedKey: "0__6:12", Path: "D\nDIEU\nmisericorde de"},
		{EncodedKey: "0__7:180", Path: "D\nDIEU\nnames of"},
		{EncodedKey: "0__1:1", Path: "D\nDIEU\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TranslatePayload() = %+v, want %+v", got, want)
	}
	for seg, n := range gen.calls {
		if n != 1 {
			t.Errorf("segment %q translated %d times", seg, n)
		}
	}
	if entries[0].Path != "G\nGOD\nmercy of" {
		t.Error("input entries modified")
	}
}

func TestTranslateTreeMergesCollisions(t *testing.T) {
	gen := &fakeGenerator{answers: map[string]string{
		"A":     "A",
		"Adam":  "Adam",
		"Aadam": "Adam",
	}}
	tr := NewTranslator(gen, "German", 2, logging.Discard())

	var root taxonomy.Node
	if err := json.Unmarshal([]byte(`{"A":{"Aadam":"3:59","Adam":"2:30"}}`), &root); err != nil {
		t.Fatal(err)
	}

	r := taxonomy.NewReconstructor(taxonomy.WithLogger(logging.Discard()))
	out, err := tr.TranslateTree(context.Background(), &root, r)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(out)
	if want := `{"A":{"Adam":"2:30; 3:59"}}`; string(b) != want {
		t.Errorf("TranslateTree() = %s, want %s", b, want)
	}
}

func TestTranslateError(t *testing.T) {
	boom := errors.New("connection refused")
	tr := NewTranslator(&fakeGenerator{err: boom}, "French", 0, logging.Discard())

	_, err := tr.TranslatePayload(context.Background(), []models.FlattenedEntry{{EncodedKey: "0__1:1", Path: "A\nAdam"}})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestPrompt(t *testing.T) {
	p := NewTranslator(nil, "French", 1, logging.Discard()).Prompt("names of")
	for _, want := range []string{"into French", "Entry: names of\n", "2:255"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNewOllamaGenerator(t *testing.T) {
	g, err := NewOllamaGenerator("http://localhost:11434", "llama3")
	if err != nil {
		t.Fatal(err)
	}
	if g.Model != "llama3" || g.Client == nil {
		t.Errorf("generator = %+v", g)
	}
	if _, err := NewOllamaGenerator("", ""); err == nil {
		t.Error("missing model accepted")
	}
	if _, err := NewOllamaGenerator("://bad", "llama3"); err == nil {
		t.Error("invalid host accepted")
	}
}
