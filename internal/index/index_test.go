package index

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "crispin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func post(id, slug string, created time.Time, tags ...string) PostRow {
	return PostRow{
		ID:        id,
		Slug:      slug,
		Title:     "Title " + slug,
		Checksum:  "cs-" + id,
		Tags:      tags,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&count); err != nil {
		t.Fatalf("posts table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM post_links`).Scan(&count); err != nil {
		t.Fatalf("post_links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertPost(post("e1", "hello", time.Now(), "go"), "Hello body.", nil); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}
	cs, err := db.GetChecksum("e1")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "cs-e1" {
		t.Errorf("checksum = %q, want %q", cs, "cs-e1")
	}

	cs, err = db.GetChecksum("missing")
	if err != nil || cs != "" {
		t.Errorf("missing checksum = %q, %v", cs, err)
	}
}

func TestGetPost(t *testing.T) {
	db := testDB(t)
	created := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	row := post("e1", "hello", created, "go", "life")
	row.Excerpt = "short"
	row.CoverImage = "https://images.example/c.png"
	if err := db.UpsertPost(row, "# Hello\n\nBody", nil); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}

	got, body, err := db.GetPost("hello")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got == nil {
		t.Fatal("post not found")
	}
	if got.ID != "e1" || got.Excerpt != "short" || got.CoverImage != row.CoverImage {
		t.Errorf("row = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created = %v, want %v", got.CreatedAt, created)
	}
	if body != "# Hello\n\nBody" {
		t.Errorf("body = %q", body)
	}

	missing, _, err := db.GetPost("nope")
	if err != nil || missing != nil {
		t.Errorf("missing post = %v, %v", missing, err)
	}
}

func TestUpsertReplacesRow(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertPost(post("e1", "old-slug", now), "v1", nil)
	row := post("e1", "new-slug", now)
	row.Checksum = "v2"
	if err := db.UpsertPost(row, "v2", nil); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}

	if p, _, _ := db.GetPost("old-slug"); p != nil {
		t.Error("old slug still indexed")
	}
	if _, body, _ := db.GetPost("new-slug"); body != "v2" {
		t.Errorf("body = %q", body)
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSlugMovedToNewEntry(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertPost(post("e1", "shared", now), "first", nil)
	if err := db.UpsertPost(post("e2", "shared", now), "second", nil); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}
	p, _, _ := db.GetPost("shared")
	if p == nil || p.ID != "e2" {
		t.Errorf("post = %+v", p)
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestListPosts(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertPost(post("e1", "first", base, "go"), "", nil)
	_ = db.UpsertPost(post("e2", "second", base.Add(time.Hour), "life"), "", nil)
	_ = db.UpsertPost(post("e3", "third", base.Add(2*time.Hour), "go", "life"), "", nil)

	rows, total, err := db.ListPosts(2, 0, "")
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total=%d len=%d", total, len(rows))
	}
	if rows[0].Slug != "third" || rows[1].Slug != "second" {
		t.Errorf("order = %s, %s", rows[0].Slug, rows[1].Slug)
	}

	rows, total, err = db.ListPosts(10, 0, "go")
	if err != nil {
		t.Fatalf("ListPosts(tag): %v", err)
	}
	if total != 2 || len(rows) != 2 || rows[1].Slug != "first" {
		t.Errorf("tag filter: total=%d rows=%v", total, rows)
	}

	rows, _, _ = db.ListPosts(10, 2, "")
	if len(rows) != 1 || rows[0].Slug != "first" {
		t.Errorf("offset rows = %v", rows)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertPost(post("e1", "a", now), "see /p/b", []string{"b"})
	_ = db.UpsertPost(post("e2", "c", now), "see /p/b", []string{"b", "b"})
	_ = db.UpsertPost(post("e3", "b", now), "target", nil)

	bl, err := db.Backlinks("b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0] != "a" || bl[1] != "c" {
		t.Errorf("backlinks = %v", bl)
	}
}

func TestDeletePost(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertPost(post("e1", "gone", now), "body", []string{"other"})
	if err := db.DeletePost("e1"); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if cs, _ := db.GetChecksum("e1"); cs != "" {
		t.Error("expected empty checksum after delete")
	}
	if bl, _ := db.Backlinks("other"); len(bl) != 0 {
		t.Errorf("links survived delete: %v", bl)
	}
	if err := db.DeletePost("never-existed"); err != nil {
		t.Errorf("deleting unknown id: %v", err)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertPost(post("e1", "a", now), "", nil)
	_ = db.UpsertPost(post("e2", "b", now), "", nil)

	got, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(got) != 2 || got["e1"] != "cs-e1" || got["e2"] != "cs-e2" {
		t.Errorf("checksums = %v", got)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(post("e1", "searchable", time.Now()), "Crispin writes about distributed systems.", nil)

	results, err := db.Search("distributed", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "searchable" {
		t.Errorf("results = %v", results)
	}
}

func TestChecksum(t *testing.T) {
	const emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Checksum(nil); got != emptySHA {
		t.Errorf("Checksum(nil) = %s", got)
	}
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("distinct inputs share a checksum")
	}
}
