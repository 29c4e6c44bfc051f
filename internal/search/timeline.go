package search

import (
	"context"
	"sort"
	"time"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
)

// Timeline lists visible chunks created at or after since, ordered by
// created_at ascending. When more than limit chunks match, the store's
// scroll order decides which ones make up the page; the page is then
// sorted by time. Results carry a fixed score of 1.0, since a scroll is
// not similarity-ranked.
func (e *Engine) Timeline(ctx context.Context, since time.Time, limit int) ([]Result, error) {
	gte := float64(since.Unix())
	filter := &chunkstore.Filter{
		Must: []chunkstore.Condition{
			{Key: "created_at_unix", Range: &chunkstore.RangeValue{Gte: &gte, HasGte: true}},
			chunkstore.HeadFilter(),
		},
		MustNot: []chunkstore.Condition{chunkstore.NotDeletionEligible()},
	}

	page, err := e.store.Scroll(ctx, e.collection, chunkstore.ScrollParams{Filter: filter, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(page.Chunks, func(i, j int) bool {
		return page.Chunks[i].CreatedAt.Before(page.Chunks[j].CreatedAt)
	})

	results := make([]Result, len(page.Chunks))
	for i, c := range page.Chunks {
		results[i] = toResult(c, 1.0)
	}
	return results, nil
}

// nowRFC3339 stamps the current time for last_accessed_at patches.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
