package positions

import (
	"time"

	"github.com/rs/zerolog"
)

// PruneJob drops summary cache entries of profiles nobody asked about for a while.
// Freshness never depends on it; it only bounds memory.
type PruneJob struct {
	cache *SummaryCache
	idle  time.Duration
	log   zerolog.Logger
}

// NewPruneJob creates a cache prune job
func NewPruneJob(cache *SummaryCache, idle time.Duration, log zerolog.Logger) *PruneJob {
	return &PruneJob{
		cache: cache,
		idle:  idle,
		log:   log.With().Str("job", "positions_cache_prune").Logger(),
	}
}

// Run removes idle entries
func (j *PruneJob) Run() error {
	removed := j.cache.Prune(j.idle)
	if removed > 0 {
		j.log.Info().
			Int("removed", removed).
			Int("remaining", j.cache.Len()).
			Msg("Pruned idle positions summaries")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PruneJob) Name() string {
	return "positions_cache_prune"
}
