package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
)

// ErrPageNotFound is returned by LoadPage for an unknown page number
var ErrPageNotFound = errors.New("page not found")

// Store persists the structured corpus and flattened taxonomy payloads
type Store interface {
	// Initialize creates tables and indices if they do not exist
	Initialize(ctx context.Context) error
	// StorePage replaces the stored copy of a page
	StorePage(ctx context.Context, page models.StructuredPage) error
	// LoadPage reads a page back
	LoadPage(ctx context.Context, number int) (models.StructuredPage, error)
	// PageNumbers lists stored pages in order
	PageNumbers(ctx context.Context) ([]int, error)
	// StoreTaxonomy replaces the entries of a taxonomy resource, keeping their order
	StoreTaxonomy(ctx context.Context, resource string, entries []models.FlattenedEntry) error
	// LoadTaxonomy reads a taxonomy resource in stored order
	LoadTaxonomy(ctx context.Context, resource string) ([]models.FlattenedEntry, error)
	// Close releases the connection
	Close()
}

// Open connects to PostgreSQL for postgres:// URLs and to a SQLite file otherwise
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := NewDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case dsn == "":
		return nil, errors.New("empty database connection string")
	default:
		db, err := NewSQLite(strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// StoreCorpus stores every page of the corpus, logging progress every 50 pages.
// A failing page is logged and skipped; the count of stored pages is returned.
func StoreCorpus(ctx context.Context, s Store, c *models.Corpus, logger *slog.Logger) (int, error) {
	logger = logging.OrDefault(logger)
	stored := 0

	for _, page := range c.Pages() {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		if err := s.StorePage(ctx, page); err != nil {
			logger.Warn("failed to store page", "page", page.PageNumber, "error", err)
			continue
		}
		stored++

		if stored%50 == 0 {
			logger.Info("storing pages", "stored", stored, "total", c.Len())
		}
	}

	if stored == 0 && c.Len() > 0 {
		return 0, fmt.Errorf("failed to store any of %d pages", c.Len())
	}
	return stored, nil
}
