package search

import (
	"context"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// trackAccessCredit walks each result's supersession chain to its
// current head and patches access_count/last_accessed_at there
//. It runs asynchronously and never surfaces an
// error to the caller of Search; every failure is logged as a warning.
func (e *Engine) trackAccessCredit(ctx context.Context, results []Result) {
	if len(results) == 0 {
		return
	}

	credits := make(map[string]int64, len(results))
	resolve := e.resolver(ctx)
	for _, r := range results {
		head, err := chunk.Head(r.chunkID, resolve)
		if err != nil {
			e.logger.Warn("access-credit head walk failed", "error", atlaserrors.AccessTrackingFailure(err))
			continue
		}
		credits[head]++
	}

	for head, n := range credits {
		current, err := e.store.Retrieve(ctx, e.collection, []string{head})
		if err != nil || len(current) == 0 {
			e.logger.Warn("access-credit patch failed: could not read current count", "error", atlaserrors.AccessTrackingFailure(err))
			continue
		}
		patch := map[string]any{
			"access_count": current[0].AccessCount + n,
			"last_accessed_at": nowRFC3339(),
		}
		if err := e.store.SetPayload(ctx, e.collection, []string{head}, patch); err != nil {
			e.logger.Warn("access-credit patch failed", "error", atlaserrors.AccessTrackingFailure(err))
		}
	}
}

// resolver adapts the store's Retrieve call to chunk.Resolver's shape:
// ok=false reports the id could not be found at all (a broken chain),
// distinct from an empty supersededBy (the id is a head).
func (e *Engine) resolver(ctx context.Context) chunk.Resolver {
	return func(id string) (string, bool) {
		chunks, err := e.store.Retrieve(ctx, e.collection, []string{id})
		if err != nil || len(chunks) == 0 {
			return "", false
		}
		return chunks[0].SupersededBy, true
	}
}
