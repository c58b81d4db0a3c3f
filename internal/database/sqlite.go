package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quran-corpus/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pages (
    page_number INTEGER PRIMARY KEY,
    page_info TEXT NOT NULL,
    chapter_headers TEXT NOT NULL,
    notes TEXT NOT NULL,
    cumulative_frequency TEXT NOT NULL DEFAULT '',
    cumulative_verse_sum TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS verses (
    page_number INTEGER NOT NULL,
    position INTEGER NOT NULL,
    verse_number TEXT NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (page_number, position)
);
CREATE TABLE IF NOT EXISTS titles (
    page_number INTEGER NOT NULL,
    position INTEGER NOT NULL,
    anchor TEXT NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (page_number, position)
);
CREATE TABLE IF NOT EXISTS taxonomy_entries (
    resource TEXT NOT NULL,
    position INTEGER NOT NULL,
    encoded_key TEXT NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (resource, position)
);
CREATE INDEX IF NOT EXISTS verses_number_idx ON verses (verse_number);
`

// SQLite is a file-backed store using the pure Go driver. String lists are
// stored as JSON text.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite database file
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Initialize creates the tables
func (s *SQLite) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StorePage replaces a page with its verses and titles in one transaction
func (s *SQLite) StorePage(ctx context.Context, page models.StructuredPage) error {
	info, err := encodeList(page.PageInfo)
	if err != nil {
		return err
	}
	headers, err := encodeList(page.ChapterHeaders)
	if err != nil {
		return err
	}
	notes, err := encodeList(page.Notes.Data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pages", "verses", "titles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE page_number = ?", page.PageNumber); err != nil {
			return fmt.Errorf("failed to clear %s of page %d: %w", table, page.PageNumber, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO pages (
            page_number, page_info, chapter_headers, notes,
            cumulative_frequency, cumulative_verse_sum
        )
        VALUES (?, ?, ?, ?, ?, ?)
    `, page.PageNumber, info, headers, notes,
		page.Notes.CumulativeFrequency, page.Notes.CumulativeVerseSum)
	if err != nil {
		return fmt.Errorf("failed to insert page %d: %w", page.PageNumber, err)
	}

	for i, number := range page.Verses.Keys() {
		text, _ := page.Verses.Get(number)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO verses (page_number, position, verse_number, content) VALUES (?, ?, ?, ?)`,
			page.PageNumber, i, number, text); err != nil {
			return fmt.Errorf("failed to insert verse %s of page %d: %w", number, page.PageNumber, err)
		}
	}

	for i, anchor := range page.Titles.Keys() {
		text, _ := page.Titles.Get(anchor)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO titles (page_number, position, anchor, content) VALUES (?, ?, ?, ?)`,
			page.PageNumber, i, anchor, text); err != nil {
			return fmt.Errorf("failed to insert title %s of page %d: %w", anchor, page.PageNumber, err)
		}
	}

	return tx.Commit()
}

// LoadPage reads a page with its verses and titles
func (s *SQLite) LoadPage(ctx context.Context, number int) (models.StructuredPage, error) {
	page := models.StructuredPage{PageNumber: number}

	var info, headers, notes string
	err := s.db.QueryRowContext(ctx, `
        SELECT page_info, chapter_headers, notes, cumulative_frequency, cumulative_verse_sum
        FROM pages WHERE page_number = ?
    `, number).Scan(&info, &headers, &notes,
		&page.Notes.CumulativeFrequency, &page.Notes.CumulativeVerseSum)
	if errors.Is(err, sql.ErrNoRows) {
		return page, fmt.Errorf("page %d: %w", number, ErrPageNotFound)
	}
	if err != nil {
		return page, fmt.Errorf("failed to query page %d: %w", number, err)
	}

	if page.PageInfo, err = decodeList(info); err != nil {
		return page, err
	}
	if page.ChapterHeaders, err = decodeList(headers); err != nil {
		return page, err
	}
	if page.Notes.Data, err = decodeList(notes); err != nil {
		return page, err
	}

	if page.Verses, err = s.queryPairs(ctx,
		`SELECT verse_number, content FROM verses WHERE page_number = ? ORDER BY position`, number); err != nil {
		return page, err
	}
	if page.Titles, err = s.queryPairs(ctx,
		`SELECT anchor, content FROM titles WHERE page_number = ? ORDER BY position`, number); err != nil {
		return page, err
	}
	return page, nil
}

// PageNumbers lists the stored page numbers
func (s *SQLite) PageNumbers(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT page_number FROM pages ORDER BY page_number`)
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
	return numbers, rows.Err()
}

// StoreTaxonomy replaces the stored entries of a resource
func (s *SQLite) StoreTaxonomy(ctx context.Context, resource string, entries []models.FlattenedEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM taxonomy_entries WHERE resource = ?`, resource); err != nil {
		return fmt.Errorf("failed to clear resource %s: %w", resource, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO taxonomy_entries (resource, position, encoded_key, path) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, resource, i, e.EncodedKey, e.Path); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", e.EncodedKey, err)
		}
	}
	return tx.Commit()
}

// LoadTaxonomy reads the entries of a resource in stored order
func (s *SQLite) LoadTaxonomy(ctx context.Context, resource string) ([]models.FlattenedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT encoded_key, path FROM taxonomy_entries
        WHERE resource = ? ORDER BY position
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
	return entries, rows.Err()
}

// Close closes the database
func (s *SQLite) Close() {
	s.db.Close()
}

func (s *SQLite) queryPairs(ctx context.Context, query string, args ...any) (models.StringMap, error) {
	var out models.StringMap

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return out, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, fmt.Errorf("failed to scan row: %w", err)
		}
		out.Set(key, value)
	}
	return out, rows.Err()
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return list, nil
}
