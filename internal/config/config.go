// Package config loads the pipeline configuration: page ranges, the index
// folio guard, per-page layout exceptions and the verse-count table.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"quran-corpus/internal/structurer"
)

// Config is the JSON configuration file
type Config struct {
	// StartPage and EndPage bound the verse corpus (inclusive; EndPage 0 is open).
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`
	// MaxPage is the last corpus page; bare folio numbers above it are dropped from index text.
	MaxPage int `json:"max_page"`
	// Workers is the number of pages structured concurrently.
	Workers        int                        `json:"workers"`
	PageExceptions []structurer.PageException `json:"page_exceptions"`
	// ExpectedVerses maps a chapter number to its verse count.
	ExpectedVerses map[string]int `json:"expected_verses,omitempty"`
	// Substitutions are added to the default character substitution table.
	Substitutions map[string]string `json:"substitutions,omitempty"`
	// Collation is the BCP 47 tag used to order taxonomy keys; empty means byte order.
	Collation string `json:"collation,omitempty"`
}

// Defaults returns the configuration of the English source edition
func Defaults() Config {
	return Config{
		StartPage: 24,
		EndPage:   0,
		MaxPage:   394,
		Workers:   1,
		PageExceptions: []structurer.PageException{
			{Page: 24, SplitPageHeader: true, NotesTail: 4, FirstTotalOffset: 3},
		},
	}
}

// LoadJSON reads a configuration from a file path or raw JSON, on top of
// Defaults. Unknown fields are rejected.
func LoadJSON(path string, raw []byte) (Config, error) {
	cfg := Defaults()

	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}

	// decoding into the default slice would leave default fields in listed exceptions
	defaults := cfg.PageExceptions
	cfg.PageExceptions = nil

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.PageExceptions == nil {
		cfg.PageExceptions = defaults
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and table keys
func (c Config) Validate() error {
	if c.StartPage < 1 {
		return fmt.Errorf("start_page must be at least 1, got %d", c.StartPage)
	}
	if c.EndPage != 0 && c.EndPage < c.StartPage {
		return fmt.Errorf("end_page %d precedes start_page %d", c.EndPage, c.StartPage)
	}
	if c.MaxPage < 0 {
		return fmt.Errorf("max_page must not be negative, got %d", c.MaxPage)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, e := range c.PageExceptions {
		if e.Page < 1 {
			return fmt.Errorf("page exception with invalid page %d", e.Page)
		}
		if e.NotesTail < 0 || e.FirstTotalOffset < 0 {
			return fmt.Errorf("page exception %d: negative offsets", e.Page)
		}
	}
	if _, err := c.Expected(); err != nil {
		return err
	}
	return nil
}

// Range returns the configured corpus page range
func (c Config) Range() structurer.Range {
	return structurer.Range{Start: c.StartPage, End: c.EndPage}
}

// Expected returns ExpectedVerses keyed by chapter number
func (c Config) Expected() (map[int]int, error) {
	out := make(map[int]int, len(c.ExpectedVerses))
	for k, v := range c.ExpectedVerses {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("expected_verses: invalid chapter %q", k)
		}
		out[n] = v
	}
	return out, nil
}
