package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/database"
	"github.com/ekaya-inc/claimcheck/pkg/logging"
	"github.com/ekaya-inc/claimcheck/pkg/metrics"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
	"github.com/ekaya-inc/claimcheck/pkg/seo"
)

// SummaryScheduler regenerates claim SEO metadata in the background.
type SummaryScheduler interface {
	// Schedule requests regeneration for the given input. It never blocks on the
	// generator and never reports failure to the caller.
	Schedule(claimID uuid.UUID, in seo.Input)
}

// AsyncSummaryScheduler runs each regeneration on its own goroutine with a fresh connection scope.
// Only the newest generation scheduled for a claim may write its result.
type AsyncSummaryScheduler struct {
	generator seo.Generator
	claimRepo repositories.ClaimRepository
	scoper    database.Scoper
	timeout   time.Duration
	logger    *zap.Logger

	mu sync.Mutex
	// inflight holds the key of the newest generation per claim until it finishes.
	inflight map[uuid.UUID]string
	// written remembers the key behind each stored result for the dedup TTL, so
	// recomputes that do not move title, category or leading side are skipped.
	written *cache.Cache

	// writeMu orders write-backs so a superseded result cannot land after a newer one.
	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// SummarySchedulerDeps contains dependencies for the summary scheduler.
type SummarySchedulerDeps struct {
	Generator seo.Generator
	ClaimRepo repositories.ClaimRepository
	Scoper    database.Scoper
	Timeout   time.Duration
	// DedupTTL bounds how long a stored key suppresses identical requests.
	DedupTTL time.Duration
	Logger   *zap.Logger
}

// NewSummaryScheduler creates a SummaryScheduler.
func NewSummaryScheduler(deps *SummarySchedulerDeps) *AsyncSummaryScheduler {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dedupTTL := deps.DedupTTL
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &AsyncSummaryScheduler{
		generator: deps.Generator,
		claimRepo: deps.ClaimRepo,
		scoper:    deps.Scoper,
		timeout:   timeout,
		logger:    deps.Logger.Named("summary"),
		inflight:  make(map[uuid.UUID]string),
		written:   cache.New(dedupTTL, dedupTTL),
	}
}

func (s *AsyncSummaryScheduler) Schedule(claimID uuid.UUID, in seo.Input) {
	key := in.Key()

	s.mu.Lock()
	if s.latestKey(claimID) == key {
		s.mu.Unlock()
		metrics.SEOGenerations.WithLabelValues("skipped").Inc()
		return
	}
	s.inflight[claimID] = key
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(claimID, in, key)
}

// latestKey returns the key of the newest scheduled or stored generation. Callers hold mu.
func (s *AsyncSummaryScheduler) latestKey(claimID uuid.UUID) string {
	if key, ok := s.inflight[claimID]; ok {
		return key
	}
	if key, ok := s.written.Get(claimID.String()); ok {
		return key.(string)
	}
	return ""
}

// isNewest reports whether key is still the newest generation for the claim.
func (s *AsyncSummaryScheduler) isNewest(claimID uuid.UUID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[claimID] == key
}

func (s *AsyncSummaryScheduler) run(claimID uuid.UUID, in seo.Input, key string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.generator.Generate(ctx, in)
	if err != nil {
		s.fail(claimID, key, "SEO generation failed", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.isNewest(claimID, key) {
		metrics.SEOGenerations.WithLabelValues("superseded").Inc()
		s.logger.Debug("Dropping superseded SEO result", zap.String("claim_id", claimID.String()))
		return
	}

	scoped, release, err := s.scoper.WithScope(ctx)
	if err != nil {
		s.fail(claimID, key, "Failed to acquire connection for SEO write-back", err)
		return
	}
	defer release()

	if err := s.claimRepo.UpdateSEO(scoped, claimID, result.SEOTitle, result.SEODescription); err != nil {
		s.fail(claimID, key, "Failed to store SEO metadata", err)
		return
	}

	s.mu.Lock()
	if s.inflight[claimID] == key {
		delete(s.inflight, claimID)
	}
	s.written.SetDefault(claimID.String(), key)
	s.mu.Unlock()

	metrics.SEOGenerations.WithLabelValues("success").Inc()
}

// fail logs the error and forgets the key so the next recompute tries again.
func (s *AsyncSummaryScheduler) fail(claimID uuid.UUID, key, msg string, err error) {
	s.mu.Lock()
	if s.inflight[claimID] == key {
		delete(s.inflight, claimID)
	}
	s.mu.Unlock()

	metrics.SEOGenerations.WithLabelValues("failure").Inc()
	s.logger.Warn(msg,
		zap.String("claim_id", claimID.String()),
		zap.String("error", logging.SanitizeError(err)))
}

// Wait blocks until in-flight generations finish. Call during shutdown.
func (s *AsyncSummaryScheduler) Wait() {
	s.wg.Wait()
}

var _ SummaryScheduler = (*AsyncSummaryScheduler)(nil)
