package blog

import (
	"context"
	"log/slog"
	"time"

	"github.com/DominiquePaul/thisiscrispin/internal/frontmatter"
	"github.com/DominiquePaul/thisiscrispin/internal/storage"
)

// ExportStats summarises one Export run.
type ExportStats struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Moved     int `json:"moved"`
	Removed   int `json:"removed"`
}

type exportMeta struct {
	ID         string   `yaml:"id"`
	Slug       string   `yaml:"slug"`
	Title      string   `yaml:"title"`
	Excerpt    string   `yaml:"excerpt,omitempty"`
	CoverImage string   `yaml:"cover_image,omitempty"`
	Tags       []string `yaml:"tags,flow"`
	Date       string   `yaml:"date"`
	Checksum   string   `yaml:"checksum"`
}

type exportedFile struct {
	path     string
	checksum string
}

const exportPageSize = 100

// Export writes every indexed post to dst as {slug}.md with YAML
// frontmatter. Files carrying the post's current checksum are left alone, a
// renamed slug moves the old file, and files of posts no longer indexed are
// removed. Files without an id in their frontmatter are never touched.
func (s *Service) Export(ctx context.Context, dst storage.Provider) (ExportStats, error) {
	var stats ExportStats

	files, err := dst.List("")
	if err != nil {
		return stats, err
	}
	byID := make(map[string]exportedFile, len(files))
	for _, f := range files {
		data, err := dst.Read(f.Path)
		if err != nil {
			return stats, err
		}
		fm, _ := frontmatter.Split(data)
		if id := frontmatter.String(fm, "id"); id != "" {
			byID[id] = exportedFile{path: f.Path, checksum: frontmatter.String(fm, "checksum")}
		}
	}

	for offset := 0; ; offset += exportPageSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rows, total, err := s.idx.ListPosts(exportPageSize, offset, "")
		if err != nil {
			return stats, err
		}
		for _, row := range rows {
			path := row.Slug + ".md"
			prev, known := byID[row.ID]
			delete(byID, row.ID)

			if known && prev.path != path {
				if err := dst.Move(prev.path, path); err != nil {
					return stats, err
				}
				stats.Moved++
			}
			if known && prev.checksum == row.Checksum {
				stats.Unchanged++
				continue
			}

			_, body, err := s.idx.GetPost(row.Slug)
			if err != nil {
				return stats, err
			}
			out, err := frontmatter.Render(exportMeta{
				ID:         row.ID,
				Slug:       row.Slug,
				Title:      row.Title,
				Excerpt:    row.Excerpt,
				CoverImage: row.CoverImage,
				Tags:       nonNilSlice(row.Tags),
				Date:       row.CreatedAt.UTC().Format(time.RFC3339),
				Checksum:   row.Checksum,
			}, body)
			if err != nil {
				return stats, err
			}
			if err := dst.Write(path, out); err != nil {
				return stats, err
			}
			stats.Written++
		}
		if len(rows) == 0 || offset+len(rows) >= total {
			break
		}
	}

	for _, stale := range byID {
		if err := dst.Delete(stale.path); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	s.logger.Info("export complete",
		slog.Int("written", stats.Written),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("moved", stats.Moved),
		slog.Int("removed", stats.Removed))
	return stats, nil
}
