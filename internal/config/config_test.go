package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() invalid: %v", err)
	}
	if cfg.StartPage != 24 || cfg.MaxPage != 394 || cfg.Workers != 1 {
		t.Errorf("Defaults() = %+v", cfg)
	}
	if len(cfg.PageExceptions) != 1 || cfg.PageExceptions[0].Page != 24 || cfg.PageExceptions[0].NotesTail != 4 {
		t.Errorf("PageExceptions = %+v", cfg.PageExceptions)
	}
	if r := cfg.Range(); r.Start != 24 || r.End != 0 {
		t.Errorf("Range() = %+v", r)
	}
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	cfg, err := LoadJSON("", []byte(`{
		"start_page": 30,
		"end_page": 40,
		"workers": 4,
		"expected_verses": {"1": 7, "2": 286},
		"collation": "en"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StartPage != 30 || cfg.EndPage != 40 || cfg.Workers != 4 || cfg.MaxPage != 394 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.PageExceptions) != 1 {
		t.Errorf("default page exceptions lost: %+v", cfg.PageExceptions)
	}

	expected, err := cfg.Expected()
	if err != nil {
		t.Fatal(err)
	}
	if expected[1] != 7 || expected[2] != 286 {
		t.Errorf("Expected() = %v", expected)
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"page_exceptions": [{"page": 25, "split_page_header": true}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadJSON(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.PageExceptions) != 1 || cfg.PageExceptions[0].Page != 25 || !cfg.PageExceptions[0].SplitPageHeader {
		t.Errorf("PageExceptions = %+v", cfg.PageExceptions)
	}
}

func TestLoadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unknown field", `{"start_pgae": 3}`, "unknown field"},
		{"bad range", `{"start_page": 50, "end_page": 10}`, "precedes"},
		{"bad start", `{"start_page": 0}`, "start_page"},
		{"bad chapter", `{"expected_verses": {"one": 7}}`, "invalid chapter"},
		{"negative workers", `{"workers": -1}`, "workers"},
		{"bad exception", `{"page_exceptions": [{"page": 0}]}`, "invalid page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON("", []byte(tt.raw))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := LoadJSON("", nil); err == nil {
		t.Error("LoadJSON without a source succeeded")
	}
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("LoadJSON of a missing file succeeded")
	}
}
