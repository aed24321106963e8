package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	ID         string
	Slug       string
	Title      string
	Excerpt    string
	CoverImage string
	Checksum   string
	Tags       []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string
	Title   string
	Snippet string
}

const postColumns = `id, slug, title, excerpt, cover_image, checksum, tags, created_at, updated_at`

// UpsertPost inserts or replaces a post, its FTS entry, and its outgoing
// post links within a transaction.
func (db *DB) UpsertPost(p PostRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(p.Tags)

	// A slug moved to a new entry id replaces the old row.
	if _, err := tx.Exec(`DELETE FROM posts WHERE slug = ? AND id <> ?`, p.Slug, p.ID); err != nil {
		return fmt.Errorf("index: clear slug: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO posts (`+postColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug        = excluded.slug,
			title       = excluded.title,
			excerpt     = excluded.excerpt,
			cover_image = excluded.cover_image,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at,
			body        = excluded.body
	`, p.ID, p.Slug, p.Title, p.Excerpt, p.CoverImage, p.Checksum, string(tagsJSON), p.CreatedAt.UTC(), p.UpdatedAt.UTC(), body)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	if err := ftsUpsert(tx, p.ID, p.Slug, p.Title, body, p.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM post_links WHERE source = ?`, p.Slug); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO post_links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(p.Slug, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePost removes a post, its FTS entry, and outgoing links.
func (db *DB) DeletePost(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var slug string
	err = tx.QueryRow(`SELECT slug FROM posts WHERE id = ?`, id).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("index: lookup post: %w", err)
	}

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM post_links WHERE source = ?`, slug)
	_, _ = tx.Exec(`DELETE FROM posts WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// GetPost returns the post with slug and its markdown body, or nil when it
// is not indexed.
func (db *DB) GetPost(slug string) (*PostRow, string, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+`, body FROM posts WHERE slug = ?`, slug)
	var (
		p    PostRow
		tags string
		body string
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.CoverImage, &p.Checksum, &tags, &p.CreatedAt, &p.UpdatedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("index: get post: %w", err)
	}
	_ = json.Unmarshal([]byte(tags), &p.Tags)
	return &p, body, nil
}

// ListPosts returns posts newest first, optionally filtered by tag, and the
// total number of matches.
func (db *DB) ListPosts(limit, offset int, tag string) ([]PostRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ``
	args := []any{}
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts `+where+`
		ORDER BY created_at DESC, slug
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	out := []PostRow{}
	for rows.Next() {
		var (
			p    PostRow
			tags string
		)
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.CoverImage, &p.Checksum, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tags), &p.Tags)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// AllChecksums maps every indexed post id to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed posts.
func (db *DB) Count() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&n)
	return n, err
}

// Backlinks returns the slugs of posts whose body links to slug.
func (db *DB) Backlinks(slug string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM post_links WHERE target = ? ORDER BY source`, slug)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
