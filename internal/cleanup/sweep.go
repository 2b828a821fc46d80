package cleanup

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/storage"
)

// IndexLister lists the names of all vector indexes.
type IndexLister interface {
	ListNames(ctx context.Context) (map[string]struct{}, error)
}

// ObjectChecker reports whether an output object is still in the bucket.
type ObjectChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// SweepOptions controls what a sweep is allowed to delete.
type SweepOptions struct {
	// Delete enables cleanup. Without it orphans are only reported.
	Delete bool
	// Grace is how long an orphan must stay without its output object
	// before it is cleaned. The indexing server creates the index before it
	// uploads the output, so a fresh project looks orphaned for a while.
	Grace time.Duration
	// Exclude lists index names the sweep never touches.
	Exclude []string
}

// SweepReport summarises one reconciliation run.
type SweepReport struct {
	Indexes     int
	Unparsed    int
	Excluded    int
	Live        int
	Orphans     []string
	Cleaned     []string
	CheckFailed int
	Cleanup     Report
}

// Failures counts everything that should make the run non-successful.
func (r SweepReport) Failures() int {
	return r.CheckFailed + r.Cleanup.CacheFailed + r.Cleanup.IndexFailed
}

// Sweeper finds indexes whose output object is gone (typically because the
// expiration event was never delivered) and cleans them.
type Sweeper struct {
	svc     *Service
	indexes IndexLister
	objects ObjectChecker
	opts    SweepOptions
	wait    func(ctx context.Context, d time.Duration) error
}

func NewSweeper(svc *Service, indexes IndexLister, objects ObjectChecker, opts SweepOptions) *Sweeper {
	return &Sweeper{svc: svc, indexes: indexes, objects: objects, opts: opts, wait: waitFor}
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sweep returns an error only when listing indexes or waiting out the grace
// period fails.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	names, err := s.indexes.ListNames(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list indexes: %w", err)
	}

	report := SweepReport{Indexes: len(names)}
	candidates := s.findOrphans(ctx, names, &report)
	for _, key := range candidates {
		report.Orphans = append(report.Orphans, key.ResourceID())
	}

	if !s.opts.Delete || len(candidates) == 0 {
		for _, key := range candidates {
			s.svc.logger.InfoContext(ctx, "orphaned project (dry run)", "id", key.ResourceID(), "key", key.Key())
		}
		s.logSummary(ctx, report)
		return report, nil
	}

	s.svc.logger.InfoContext(ctx, "waiting before cleanup", "orphans", len(candidates), "grace", s.opts.Grace.String())
	if err := s.wait(ctx, s.opts.Grace); err != nil {
		return report, fmt.Errorf("wait grace period: %w", err)
	}

	// Re-check: anything that got its output in the meantime was in flight.
	names, err = s.indexes.ListNames(ctx)
	if err != nil {
		return report, fmt.Errorf("list indexes: %w", err)
	}
	for _, key := range candidates {
		id := key.ResourceID()
		if _, ok := names[id]; !ok {
			s.svc.logger.DebugContext(ctx, "index disappeared before cleanup", "id", id)
			continue
		}

		exists, err := s.objects.Exists(ctx, key.Key())
		if err != nil {
			s.svc.logger.ErrorContext(ctx, "failed to check output object", "key", key.Key(), "error", err)
			report.CheckFailed++
			continue
		}
		if exists {
			s.svc.logger.InfoContext(ctx, "output appeared during grace period, keeping index", "id", id)
			report.Live++
			continue
		}

		report.Cleanup.Records++
		report.Cleaned = append(report.Cleaned, id)
		s.svc.Clean(ctx, key, &report.Cleanup)
	}

	s.logSummary(ctx, report)
	return report, nil
}

func (s *Sweeper) findOrphans(ctx context.Context, names map[string]struct{}, report *SweepReport) []storage.OutputKey {
	var orphans []storage.OutputKey
	for _, name := range slices.Sorted(maps.Keys(names)) {
		if slices.Contains(s.opts.Exclude, name) {
			report.Excluded++
			continue
		}

		key, ok := storage.ParseResourceID(name)
		if !ok {
			s.svc.logger.DebugContext(ctx, "index is not a project index", "id", name)
			report.Unparsed++
			continue
		}

		exists, err := s.objects.Exists(ctx, key.Key())
		if err != nil {
			s.svc.logger.ErrorContext(ctx, "failed to check output object", "key", key.Key(), "error", err)
			report.CheckFailed++
			continue
		}
		if exists {
			report.Live++
			continue
		}
		orphans = append(orphans, key)
	}
	return orphans
}

func (s *Sweeper) logSummary(ctx context.Context, report SweepReport) {
	s.svc.logger.InfoContext(ctx, "sweep complete",
		"indexes", report.Indexes,
		"live", report.Live,
		"excluded", report.Excluded,
		"orphans", len(report.Orphans),
		"cleaned", len(report.Cleaned),
		"check_failed", report.CheckFailed,
		"delete", s.opts.Delete,
	)
}
