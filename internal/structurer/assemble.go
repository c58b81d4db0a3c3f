package structurer

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	cerrors "quran-corpus/internal/errors"
	"quran-corpus/internal/models"
)

// Range is an inclusive page-number range. End 0 leaves the range open.
type Range struct {
	Start int
	End   int
}

// Contains reports whether page falls inside the range
func (r Range) Contains(page int) bool {
	return page >= r.Start && (r.End == 0 || page <= r.End)
}

func (r Range) validate(op string) error {
	if r.Start < 1 {
		return cerrors.NewInputError(op, fmt.Sprintf("start page %d must be at least 1", r.Start))
	}
	if r.End != 0 && r.End < r.Start {
		return cerrors.NewInputError(op, fmt.Sprintf("end page %d precedes start page %d", r.End, r.Start))
	}
	return nil
}

// Assemble structures every page inside the range, in page order, and returns
// the corpus. Pages outside the range are not classified.
func (s *Structurer) Assemble(pages []models.PageRecord, r Range) (*models.Corpus, error) {
	selected, err := s.selectPages("assemble", pages, r)
	if err != nil {
		return nil, err
	}

	out := make([]models.StructuredPage, 0, len(selected))
	for _, rec := range selected {
		out = append(out, s.Structure(rec))
	}

	s.logger.Info("corpus assembled", "pages", len(out), "start", r.Start, "end", r.End)
	return models.NewCorpus(out), nil
}

// AssembleConcurrent is Assemble with up to workers pages structured at once.
// Pages are independent, so the result equals Assemble's.
func (s *Structurer) AssembleConcurrent(ctx context.Context, pages []models.PageRecord, r Range, workers int) (*models.Corpus, error) {
	selected, err := s.selectPages("assemble", pages, r)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]models.StructuredPage, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.Structure(selected[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble corpus: %w", err)
	}

	s.logger.Info("corpus assembled", "pages", len(out), "start", r.Start, "end", r.End, "workers", workers)
	return models.NewCorpus(out), nil
}

func (s *Structurer) selectPages(op string, pages []models.PageRecord, r Range) ([]models.PageRecord, error) {
	if len(pages) == 0 {
		return nil, cerrors.EmptyDocument(op, "pages")
	}
	if err := r.validate(op); err != nil {
		return nil, err
	}

	selected := make([]models.PageRecord, 0, len(pages))
	for _, p := range pages {
		if r.Contains(p.PageNumber) {
			selected = append(selected, p)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PageNumber < selected[j].PageNumber
	})

	if len(selected) == 0 {
		s.logger.Warn("no pages inside range", "start", r.Start, "end", r.End, "pages", len(pages))
	}
	return selected, nil
}
