package index

// PostIndex is the local post cache used by the blog service.
type PostIndex interface {
	UpsertPost(p PostRow, body string, links []string) error
	DeletePost(id string) error
	GetChecksum(id string) (string, error)
	GetPost(slug string) (*PostRow, string, error)
	ListPosts(limit, offset int, tag string) ([]PostRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(slug string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

var _ PostIndex = (*DB)(nil)
