package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

const notebookColumns = `filename, title, description, tags, date, last_modified,
	checksum, html_path, static_html_path, notebook_path`

// UpsertNotebook inserts or replaces a catalog entry and its FTS entry within
// a transaction. body is the notebook source used for full-text search.
func (db *DB) UpsertNotebook(n models.Notebook, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO notebooks (`+notebookColumns+`, body, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(filename) DO UPDATE SET
			title            = excluded.title,
			description      = excluded.description,
			tags             = excluded.tags,
			date             = excluded.date,
			last_modified    = excluded.last_modified,
			checksum         = excluded.checksum,
			html_path        = excluded.html_path,
			static_html_path = excluded.static_html_path,
			notebook_path    = excluded.notebook_path,
			body             = excluded.body,
			indexed_at       = excluded.indexed_at
	`, n.Filename, n.Title, n.Description, string(tagsJSON), n.Date, n.LastModified,
		n.Checksum, n.HTMLPath, n.StaticHTMLPath, n.NotebookPath, body)
	if err != nil {
		return fmt.Errorf("index: upsert notebook: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Filename, n.Title, n.Description, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNotebook removes a catalog entry and its FTS entry.
func (db *DB) DeleteNotebook(filename string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, filename)
	if _, err := tx.Exec(`DELETE FROM notebooks WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("index: delete notebook: %w", err)
	}
	return tx.Commit()
}

// GetNotebook returns one catalog entry or apperr.ErrNotFound.
func (db *DB) GetNotebook(filename string) (*models.Notebook, error) {
	row := db.conn.QueryRow(`SELECT `+notebookColumns+` FROM notebooks WHERE filename = ?`, filename)
	n, err := scanNotebook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get notebook: %w", err)
	}
	return &n, nil
}

// ListNotebooks returns a page of catalog entries ordered by filename and the
// total number of entries matching tag. An empty tag matches every notebook.
func (db *DB) ListNotebooks(limit, offset int, tag string) ([]models.Notebook, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(notebooks.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notebooks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notebooks: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+notebookColumns+` FROM notebooks`+where+
		` ORDER BY filename LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notebooks: %w", err)
	}
	defer rows.Close()

	out := []models.Notebook{}
	for rows.Next() {
		n, err := scanNotebook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan notebook: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// Tags returns every distinct tag across the index, sorted.
func (db *DB) Tags() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT json_each.value
		FROM notebooks, json_each(notebooks.tags)
		ORDER BY json_each.value
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllChecksums returns filename → checksum for every indexed notebook.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT filename, checksum FROM notebooks`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var f, cs string
		if err := rows.Scan(&f, &cs); err != nil {
			return nil, err
		}
		out[f] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotebook(s scanner) (models.Notebook, error) {
	var n models.Notebook
	var tagsJSON string
	err := s.Scan(&n.Filename, &n.Title, &n.Description, &tagsJSON, &n.Date, &n.LastModified,
		&n.Checksum, &n.HTMLPath, &n.StaticHTMLPath, &n.NotebookPath)
	if err != nil {
		return n, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		return n, fmt.Errorf("index: decode tags: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}
