// Package translation localizes flattened taxonomy payloads. Every distinct
// path segment is translated once; encoded keys are rewritten so that the
// translated payload reconstructs into the translated tree.
package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
	"quran-corpus/internal/taxonomy"

	"golang.org/x/sync/errgroup"
)

// Translator translates taxonomy path segments through a Generator
type Translator struct {
	gen      Generator
	language string
	workers  int
	logger   *slog.Logger
}

// NewTranslator creates a translator into language using up to workers
// concurrent requests
func NewTranslator(gen Generator, language string, workers int, logger *slog.Logger) *Translator {
	if workers < 1 {
		workers = 1
	}
	return &Translator{
		gen:      gen,
		language: language,
		workers:  workers,
		logger:   logging.OrDefault(logger),
	}
}

// Prompt builds the request for one segment
func (t *Translator) Prompt(segment string) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("You translate entries of a scripture index into " + t.language + ". ")
	promptBuilder.WriteString("Keep verse references such as 2:255 or 4:11,14 exactly as written. ")
	promptBuilder.WriteString("Reply with the translation only, on a single line.\n\n")
	promptBuilder.WriteString("Entry: " + segment + "\n")
	promptBuilder.WriteString("Translation: ")

	return promptBuilder.String()
}

// Segments returns the distinct path segments of a payload in first-seen order
func Segments(entries []models.FlattenedEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		for _, seg := range e.Segments() {
			if seg == "" || seen[seg] {
				continue
			}
			seen[seg] = true
			out = append(out, seg)
		}
	}
	return out
}

// Translate returns a dictionary from each segment to its translation
func (t *Translator) Translate(ctx context.Context, segments []string) (map[string]string, error) {
	var mu sync.Mutex
	out := make(map[string]string, len(segments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)

	for _, seg := range segments {
		g.Go(func() error {
			resp, err := t.gen.Generate(ctx, t.Prompt(seg))
			if err != nil {
				return fmt.Errorf("failed to translate %q: %w", seg, err)
			}
			translated := clean(resp)
			if translated == "" {
				t.logger.Warn("empty translation, keeping source", "segment", seg)
				translated = seg
			}

			mu.Lock()
			out[seg] = translated
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	t.logger.Info("translated segments", "segments", len(out), "language", t.language)
	return out, nil
}

// TranslatePayload translates every path segment of the payload. Values in
// encoded keys are kept: they are reference lists, not prose.
func (t *Translator) TranslatePayload(ctx context.Context, entries []models.FlattenedEntry) ([]models.FlattenedEntry, error) {
	dict, err := t.Translate(ctx, Segments(entries))
	if err != nil {
		return nil, err
	}
	return Apply(entries, dict), nil
}

// Apply rewrites entry paths through dict, leaving unknown segments unchanged
func Apply(entries []models.FlattenedEntry, dict map[string]string) []models.FlattenedEntry {
	out := make([]models.FlattenedEntry, 0, len(entries))
	for _, e := range entries {
		segs := e.Segments()
		for i, seg := range segs {
			if tr, ok := dict[seg]; ok {
				segs[i] = tr
			}
		}
		out = append(out, models.FlattenedEntry{
			EncodedKey: e.EncodedKey,
			Path:       strings.Join(segs, models.PathSeparator),
		})
	}
	return out
}

// TranslateTree flattens root, translates it and rebuilds the translated tree
// with r, so that entries translating to the same path are merged
func (t *Translator) TranslateTree(ctx context.Context, root *taxonomy.Node, r *taxonomy.Reconstructor) (*taxonomy.Node, error) {
	entries, err := taxonomy.Flatten(root)
	if err != nil {
		return nil, err
	}
	translated, err := t.TranslatePayload(ctx, entries)
	if err != nil {
		return nil, err
	}
	return r.Reconstruct(translated)
}

func clean(resp string) string {
	resp = strings.TrimSpace(resp)
	if i := strings.IndexByte(resp, '\n'); i >= 0 {
		resp = resp[:i]
	}
	return strings.TrimSpace(resp)
}
