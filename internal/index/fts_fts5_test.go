//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts_fts`).Scan(&count); err != nil {
		t.Fatalf("posts_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertPost(post("e1", "fts", time.Now(), "search"), "The blog has powerful full-text search.", nil); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Slug != "fts" {
		t.Errorf("slug = %q", results[0].Slug)
	}
	if !strings.Contains(results[0].Snippet, "<b>powerful</b>") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesFromIndex(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(post("e1", "gone", time.Now()), "ephemeral words", nil)
	_ = db.DeletePost("e1")

	results, err := db.Search("ephemeral", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}
