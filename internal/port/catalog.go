package port

import "context"

// CatalogRelease is the slice of an external catalog record used to
// hydrate item display metadata.
type CatalogRelease struct {
	ID      int64
	Title   string
	Artist  string
	Year    int
	Country string
	Genres  []string
	Styles  []string
	Format  string
	URL     string
}

type CatalogClient interface {
	GetRelease(ctx context.Context, releaseID int64) (*CatalogRelease, error)
}
