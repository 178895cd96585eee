package catalog

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"reelstream/models"
)

// GenreLister is the slice of the catalog API the directory needs.
type GenreLister interface {
	Genres(ctx context.Context, kind models.ContentType) ([]models.Genre, error)
}

// Directory supplies facet labels for genre filters. It plays no part in
// pagination or search ordering.
type Directory struct {
	lister GenreLister
}

func NewDirectory(lister GenreLister) *Directory {
	return &Directory{lister: lister}
}

func (d *Directory) ListGenres(ctx context.Context, kind models.ContentType) ([]models.Genre, error) {
	genres, err := d.lister.Genres(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s genres: %w", kind, err)
	}
	return genres, nil
}

// AllGenres returns movie genres followed by TV genres, de-duplicated by id.
// A genre both lists share stays in the movie position under its TV name.
func (d *Directory) AllGenres(ctx context.Context) ([]models.Genre, error) {
	var movieGenres, tvGenres []models.Genre

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		movieGenres, err = d.ListGenres(ctx, models.ContentTypeMovie)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		tvGenres, err = d.ListGenres(ctx, models.ContentTypeTV)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return MergeGenres(movieGenres, tvGenres), nil
}

// MergeGenres de-duplicates by id. An id keeps the position where it first
// appeared and takes the name from its last occurrence.
func MergeGenres(lists ...[]models.Genre) []models.Genre {
	index := make(map[int]int)
	merged := make([]models.Genre, 0)
	for _, list := range lists {
		for _, g := range list {
			if i, ok := index[g.ID]; ok {
				merged[i].Name = g.Name
				continue
			}
			index[g.ID] = len(merged)
			merged = append(merged, g)
		}
	}
	return merged
}
