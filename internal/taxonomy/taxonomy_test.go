package taxonomy

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	cerrors "quran-corpus/internal/errors"
	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"

	"golang.org/x/text/language"
)

func mustTree(t *testing.T, s string) *Node {
	t.Helper()
	var n Node
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return &n
}

func mustJSON(t *testing.T, n *Node) string {
	t.Helper()
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func entries(pairs ...string) []models.FlattenedEntry {
	var out []models.FlattenedEntry
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.FlattenedEntry{EncodedKey: pairs[i], Path: pairs[i+1]})
	}
	return out
}

func TestReconstructMergesCollidingLeaves(t *testing.T) {
	var buf bytes.Buffer
	r := NewReconstructor(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	root, err := r.Reconstruct(entries(
		"0__1:2", "X\nY",
		"1__1:2,1:5", "X\nY",
	))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"X":{"Y":"1:2; 1:5"}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
	out := buf.String()
	if !strings.Contains(out, "branch=override") || strings.Contains(out, "branch=concatenate") {
		t.Errorf("merge log = %s, want an override record only", out)
	}
}

func TestReconstructUnion(t *testing.T) {
	r := NewReconstructor(WithLogger(logging.Discard()))

	root, err := r.Reconstruct(entries(
		"0__3:4", "A\nAdam",
		"1__2:30", "A\nAdam",
	))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"A":{"Adam":"2:30; 3:4"}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
}

func TestReconstructRewrapsLeaf(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewReconstructor(WithLogger(logger))

	root, err := r.Reconstruct(entries(
		"0__2:30", "A\nAdam",
		"0__7:11", "A\nAdam\nprostration",
	))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"A":{"Adam":{"":"2:30","prostration":"7:11"}}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
	if !strings.Contains(buf.String(), "structure adjusted") {
		t.Errorf("missing rewrap log:\n%s", buf.String())
	}
}

func TestReconstructValueOnMapping(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewReconstructor(WithLogger(logger))

	root, err := r.Reconstruct(entries(
		"0__7:11", "A\nAdam\nprostration",
		"0__2:30", "A\nAdam",
		"1__2:31", "A\nAdam",
	))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"A":{"Adam":{"":"2:30; 2:31","prostration":"7:11"}}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
	if c := strings.Count(buf.String(), "empty slot created"); c != 1 {
		t.Errorf("empty slot log count = %d, want 1:\n%s", c, buf.String())
	}
}

func TestReconstructEmptyValues(t *testing.T) {
	r := NewReconstructor(WithLogger(logging.Discard()))

	root, err := r.Reconstruct(entries("empty_1", "B\nBee"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"B":{"Bee":""}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
}

func TestReconstructSortsKeys(t *testing.T) {
	r := NewReconstructor(WithLogger(logging.Discard()))

	root, err := r.Reconstruct(entries(
		"0__1:1", "B\nZeal",
		"0__1:2", "A\nMercy",
		"0__1:3", "B\nAnger",
	))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mustJSON(t, root), `{"A":{"Mercy":"1:2"},"B":{"Anger":"1:3","Zeal":"1:1"}}`; got != want {
		t.Errorf("Reconstruct() = %s, want %s", got, want)
	}
}

func TestReconstructEmptyInput(t *testing.T) {
	_, err := NewReconstructor(WithLogger(logging.Discard())).Reconstruct(nil)
	if !cerrors.IsInputError(err) || !errors.Is(err, cerrors.ErrEmptyDocument) {
		t.Errorf("err = %v, want empty document input error", err)
	}
}

func TestDecodeValue(t *testing.T) {
	tests := map[string]string{
		"0__2:30":      "2:30",
		"12__4:11,14":  "4:11,14",
		"empty_3":      "",
		"3__a__b":      "a__b",
		"no separator": "no separator",
	}
	for key, want := range tests {
		if got := DecodeValue(key); got != want {
			t.Errorf("DecodeValue(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestFlatten(t *testing.T) {
	root := mustTree(t, `{"A":{"Aaron,":"9:23-24","Adam":{"":"2:30","prostration":"2:30"}},"B":{"Bee":""}}`)

	got, err := Flatten(root)
	if err != nil {
		t.Fatal(err)
	}
	want := entries(
		"0__2:30", "A\nAdam\n",
		"0__9:23-24", "A\nAaron,",
		"1__2:30", "A\nAdam\nprostration",
		"empty_1", "B\nBee",
	)
	if len(got) != len(want) {
		t.Fatalf("Flatten() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFlattenRejectsEmptyAndLeafRoots(t *testing.T) {
	if _, err := Flatten(nil); !cerrors.IsInputError(err) {
		t.Errorf("Flatten(nil) err = %v", err)
	}
	if _, err := Flatten(NewMapping()); !cerrors.IsInputError(err) {
		t.Errorf("Flatten(empty) err = %v", err)
	}
	if _, err := Flatten(Leaf("1:1")); !cerrors.IsInputError(err) {
		t.Errorf("Flatten(leaf) err = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	trees := []string{
		`{"A":{"Aaron,":"9:23-24"}}`,
		`{"A":{"Aaron,":"9:23-24","Adam":{"":"2:30-38","prostration":"7:11"}},"B":{"Bee":"16:68"}}`,
		`{"G":{"GOD":{"mercy":"1:1","names of":{"":"7:180","most beautiful":"17:110; 20:8"}}}}`,
		`{"Z":{"Zakat":"2:43","Zeal":"2:43"}}`,
		`{"X":{"Y":" 1:2 ","Z":" "}}`,
	}

	r := NewReconstructor(WithLogger(logging.Discard()))
	for _, s := range trees {
		root := mustTree(t, s)

		flat, err := Flatten(root)
		if err != nil {
			t.Fatal(err)
		}
		back, err := r.Reconstruct(flat)
		if err != nil {
			t.Fatal(err)
		}
		if !back.Equal(root) {
			t.Errorf("round trip of %s gave %s", s, mustJSON(t, back))
		}
	}
}

func TestFlattenDropsEmptyMappings(t *testing.T) {
	flat, err := Flatten(mustTree(t, `{"A":{"Adam":"2:30"},"B":{}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 || flat[0].Path != "A\nAdam" {
		t.Errorf("Flatten() = %+v", flat)
	}

	// a tree of empty mappings has no entries to reconstruct from
	flat, err = Flatten(mustTree(t, `{"A":{},"B":{}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 0 {
		t.Errorf("Flatten() = %+v, want no entries", flat)
	}
	_, err = NewReconstructor(WithLogger(logging.Discard())).Reconstruct(flat)
	if !errors.Is(err, cerrors.ErrEmptyDocument) {
		t.Errorf("Reconstruct() err = %v, want ErrEmptyDocument", err)
	}
}

func TestNodeJSONKeepsOrder(t *testing.T) {
	in := `{"b":"1:1","a":{"z":"2:2","":"3:3"}}`
	if got := mustJSON(t, mustTree(t, in)); got != in {
		t.Errorf("JSON round trip = %s, want %s", got, in)
	}
}

func TestNodeEqualAndWalk(t *testing.T) {
	a := mustTree(t, `{"A":{"x":"1:1","y":"1:2"}}`)
	b := mustTree(t, `{"A":{"y":"1:2","x":"1:1"}}`)
	if a.Equal(b) {
		t.Error("trees with different key order compared equal")
	}
	b.Sort(ByteOrder)
	if !a.Equal(b) {
		t.Error("sorted trees differ")
	}

	var paths []string
	a.Walk(func(path []string, value string) {
		paths = append(paths, strings.Join(path, "/")+"="+value)
	})
	if got, want := strings.Join(paths, ","), "A/x=1:1,A/y=1:2"; got != want {
		t.Errorf("Walk() = %s, want %s", got, want)
	}
}

func TestCollatorLess(t *testing.T) {
	root := mustTree(t, `{"b":"1","Z":"2","a":"3","É":"4"}`)

	root.Sort(ByteOrder)
	if got := strings.Join(root.Keys(), ""); got != "ZabÉ" {
		t.Errorf("byte order = %s", got)
	}

	root.Sort(CollatorLess(language.English))
	if got := strings.Join(root.Keys(), ""); got != "abÉZ" {
		t.Errorf("collated order = %s", got)
	}
}

func TestLessFor(t *testing.T) {
	less, err := LessFor("")
	if err != nil || !less("A", "a") {
		t.Errorf("LessFor(\"\") should be byte order")
	}
	if _, err := LessFor("not a tag!"); err == nil {
		t.Error("LessFor accepted an invalid tag")
	}
}

func TestBuilderInsert(t *testing.T) {
	b := NewBuilder(nil, logging.Discard())
	b.Insert([]string{"A", "Adam"}, "2:30")
	b.Insert([]string{"A", "Adam"}, "2:30")
	b.Insert(nil, "ignored")

	if got, want := mustJSON(t, b.Root()), `{"A":{"Adam":"2:30"}}`; got != want {
		t.Errorf("Root() = %s, want %s", got, want)
	}
}
