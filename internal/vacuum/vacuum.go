// Package vacuum implements Reclamation: hard-deletion of chunks whose
// soft-delete grace period has elapsed.
package vacuum

import (
	"context"
	"time"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/logging"
)

// DefaultGracePeriod is the default soft-delete grace period.
const DefaultGracePeriod = 14 * 24 * time.Hour

// Options parameterizes one vacuum run.
type Options struct {
	Force       bool
	DryRun      bool
	Limit       int
	GracePeriod time.Duration
}

// Sample is one chunk considered for reclamation, kept for dry-run
// reporting.
type Sample struct {
	ID               string
	DeletionMarkedAt *time.Time
}

// Stats reports before/after counts for one vacuum run.
type Stats struct {
	Scanned     int
	Deleted     int
	WithinGrace int
	Samples     []Sample
}

// Reclaimer wires the collaborators Reclamation orchestrates.
type Reclaimer struct {
	store      chunkstore.Store
	logger     logging.Logger
	collection string
	now        func() time.Time
}

// Config assembles a Reclaimer.
type Config struct {
	Store      chunkstore.Store
	Logger     logging.Logger
	Collection string
}

func New(cfg Config) *Reclaimer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reclaimer{
		store:      cfg.Store,
		logger:     logger.WithComponent("vacuum"),
		collection: cfg.Collection,
		now:        time.Now,
	}
}

// deletionEligibleFilter scrolls chunks marked for soft deletion,
// regardless of head/superseded status (deletion eligibility is
// orthogonal to supersession).
func deletionEligibleFilter() *chunkstore.Filter {
	return &chunkstore.Filter{
		Must: []chunkstore.Condition{chunkstore.DeletionEligible()},
	}
}

// Run executes one vacuum pass.
func (r *Reclaimer) Run(ctx context.Context, opts Options) (Stats, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	page, err := r.store.Scroll(ctx, r.collection, chunkstore.ScrollParams{
		Filter:      deletionEligibleFilter(),
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Scanned: len(page.Chunks)}
	now   := r.now()
	var deleteIDs []string

	for _, c := range page.Chunks {
		withinGrace := !opts.Force && c.DeletionMarkedAt != nil && now.Sub(*c.DeletionMarkedAt) < grace
		if withinGrace {
			stats.WithinGrace++
			continue
		}
		deleteIDs = append(deleteIDs, c.ID)
		stats.Samples = append(stats.Samples, Sample{ID: c.ID, DeletionMarkedAt: c.DeletionMarkedAt})
	}

	if opts.DryRun {
		stats.Deleted = len(deleteIDs)
		return stats, nil
	}

	if len(deleteIDs) > 0 {
		if err := r.store.Delete(ctx, r.collection, deleteIDs); err != nil {
			return stats, err
		}
	}
	stats.Deleted = len(deleteIDs)

	r.logger.Info("vacuum run complete", "scanned", stats.Scanned, "deleted", stats.Deleted, "within_grace", stats.WithinGrace)
	return stats, nil
}
