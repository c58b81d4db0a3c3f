package database

import (
	"context"
	"errors"
	"fmt"

	"quran-corpus/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents the PostgreSQL connection
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Initialize sets up the database tables and indices
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS pages (
            page_number INTEGER PRIMARY KEY,
            page_info TEXT[] NOT NULL,
            chapter_headers TEXT[] NOT NULL,
            notes TEXT[] NOT NULL,
            cumulative_frequency TEXT NOT NULL DEFAULT '',
            cumulative_verse_sum TEXT NOT NULL DEFAULT ''
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create pages table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS verses (
            page_number INTEGER NOT NULL REFERENCES pages (page_number) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            verse_number TEXT NOT NULL,
            content TEXT NOT NULL,
            PRIMARY KEY (page_number, position)
        );
        CREATE TABLE IF NOT EXISTS titles (
            page_number INTEGER NOT NULL REFERENCES pages (page_number) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            anchor TEXT NOT NULL,
            content TEXT NOT NULL,
            PRIMARY KEY (page_number, position)
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create verse tables: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS taxonomy_entries (
            resource TEXT NOT NULL,
            position INTEGER NOT NULL,
            encoded_key TEXT NOT NULL,
            path TEXT NOT NULL,
            PRIMARY KEY (resource, position)
        );
        CREATE INDEX IF NOT EXISTS verses_number_idx ON verses (verse_number);
    `)
	if err != nil {
		return fmt.Errorf("failed to create taxonomy table: %w", err)
	}

	return nil
}

// StorePage replaces a page with its verses and titles in one transaction
func (db *DB) StorePage(ctx context.Context, page models.StructuredPage) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pages WHERE page_number = $1`, page.PageNumber); err != nil {
		return fmt.Errorf("failed to delete page %d: %w", page.PageNumber, err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO pages (
            page_number, page_info, chapter_headers, notes,
            cumulative_frequency, cumulative_verse_sum
        )
        VALUES ($1, $2, $3, $4, $5, $6)
    `,
		page.PageNumber,
		page.PageInfo,
		page.ChapterHeaders,
		page.Notes.Data,
		page.Notes.CumulativeFrequency,
		page.Notes.CumulativeVerseSum)
	if err != nil {
		return fmt.Errorf("failed to insert page %d: %w", page.PageNumber, err)
	}

	for i, number := range page.Verses.Keys() {
		text, _ := page.Verses.Get(number)
		if _, err := tx.Exec(ctx, `
            INSERT INTO verses (page_number, position, verse_number, content)
            VALUES ($1, $2, $3, $4)
        `, page.PageNumber, i, number, text); err != nil {
			return fmt.Errorf("failed to insert verse %s of page %d: %w", number, page.PageNumber, err)
		}
	}

	for i, anchor := range page.Titles.Keys() {
		text, _ := page.Titles.Get(anchor)
		if _, err := tx.Exec(ctx, `
            INSERT INTO titles (page_number, position, anchor, content)
            VALUES ($1, $2, $3, $4)
        `, page.PageNumber, i, anchor, text); err != nil {
			return fmt.Errorf("failed to insert title %s of page %d: %w", anchor, page.PageNumber, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadPage reads a page with its verses and titles
func (db *DB) LoadPage(ctx context.Context, number int) (models.StructuredPage, error) {
	page := models.StructuredPage{PageNumber: number}

	err := db.Pool.QueryRow(ctx, `
        SELECT page_info, chapter_headers, notes, cumulative_frequency, cumulative_verse_sum
        FROM pages
        WHERE page_number = $1
    `, number).Scan(
		&page.PageInfo,
		&page.ChapterHeaders,
		&page.Notes.Data,
		&page.Notes.CumulativeFrequency,
		&page.Notes.CumulativeVerseSum)
	if errors.Is(err, pgx.ErrNoRows) {
		return page, fmt.Errorf("page %d: %w", number, ErrPageNotFound)
	}
	if err != nil {
		return page, fmt.Errorf("failed to query page %d: %w", number, err)
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT verse_number, content FROM verses
        WHERE page_number = $1
        ORDER BY position
    `, number)
	if err != nil {
		return page, fmt.Errorf("failed to query verses of page %d: %w", number, err)
	}
	if page.Verses, err = processPairs(rows); err != nil {
		return page, err
	}

	rows, err = db.Pool.Query(ctx, `
        SELECT anchor, content FROM titles
        WHERE page_number = $1
        ORDER BY position
    `, number)
	if err != nil {
		return page, fmt.Errorf("failed to query titles of page %d: %w", number, err)
	}
	if page.Titles, err = processPairs(rows); err != nil {
		return page, err
	}

	return page, nil
}

// PageNumbers lists the stored page numbers
func (db *DB) PageNumbers(ctx context.Context) ([]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT page_number FROM pages ORDER BY page_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query page numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan page number: %w", err)
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return numbers, nil
}

// StoreTaxonomy replaces the stored entries of a resource
func (db *DB) StoreTaxonomy(ctx context.Context, resource string, entries []models.FlattenedEntry) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM taxonomy_entries WHERE resource = $1`, resource); err != nil {
		return fmt.Errorf("failed to clear resource %s: %w", resource, err)
	}

	for i, e := range entries {
		if _, err := tx.Exec(ctx, `
            INSERT INTO taxonomy_entries (resource, position, encoded_key, path)
            VALUES ($1, $2, $3, $4)
        `, resource, i, e.EncodedKey, e.Path); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", e.EncodedKey, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadTaxonomy reads the entries of a resource in stored order
func (db *DB) LoadTaxonomy(ctx context.Context, resource string) ([]models.FlattenedEntry, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT encoded_key, path FROM taxonomy_entries
        WHERE resource = $1
        ORDER BY position
    `, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy %s: %w", resource, err)
	}
	defer rows.Close()

	var entries []models.FlattenedEntry
	for rows.Next() {
		var e models.FlattenedEntry
		if err := rows.Scan(&e.EncodedKey, &e.Path); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}

func processPairs(rows pgx.Rows) (models.StringMap, error) {
	defer rows.Close()

	var out models.StringMap
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, fmt.Errorf("failed to scan row: %w", err)
		}
		out.Set(key, value)
	}

	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
