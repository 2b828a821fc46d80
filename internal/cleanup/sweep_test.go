package cleanup

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

type stubLister struct {
	names []string
	err   error
}

func (s stubLister) ListNames(ctx context.Context) (map[string]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]struct{}, len(s.names))
	for _, n := range s.names {
		out[n] = struct{}{}
	}
	return out, nil
}

type stubObjects struct {
	live   map[string]bool
	failOn string
	// uploadedAfterFirstCheck become live once they were checked once
	uploadedAfterFirstCheck map[string]bool
	checks                  map[string]int
}

func (s *stubObjects) Exists(ctx context.Context, key string) (bool, error) {
	if s.checks == nil {
		s.checks = map[string]int{}
	}
	s.checks[key]++
	if key == s.failOn {
		return false, errors.New("access denied")
	}
	if s.uploadedAfterFirstCheck[key] && s.checks[key] > 1 {
		return true, nil
	}
	return s.live[key], nil
}

func newTestSweeper(svc *Service, lister IndexLister, objects ObjectChecker, opts SweepOptions) (*Sweeper, *[]time.Duration) {
	var waited []time.Duration
	s := NewSweeper(svc, lister, objects, opts)
	s.wait = func(ctx context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	return s, &waited
}

func TestSweeper_Sweep(t *testing.T) {
	cache := &stubCache{present: map[string]bool{"bob-proj2": true}}
	index := &stubIndex{names: map[string]bool{"bob-proj2": true}}
	svc := NewService(cache, index, discardLogger())

	lister := stubLister{names: []string{"alice-proj1", "bob-proj2", "shared"}}
	objects := &stubObjects{live: map[string]bool{"alice-proj1-output.txt": true}}

	sweeper, waited := newTestSweeper(svc, lister, objects, SweepOptions{Delete: true, Grace: 10 * time.Minute})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if report.Indexes != 3 || report.Live != 1 || report.Unparsed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !slices.Equal(report.Orphans, []string{"bob-proj2"}) || !slices.Equal(report.Cleaned, []string{"bob-proj2"}) {
		t.Fatalf("Orphans = %v, Cleaned = %v, want [bob-proj2]", report.Orphans, report.Cleaned)
	}
	if !slices.Equal(cache.calls, []string{"bob-proj2"}) || !slices.Equal(index.calls, []string{"bob-proj2"}) {
		t.Fatalf("store calls cache=%v index=%v, want only bob-proj2", cache.calls, index.calls)
	}
	if report.Cleanup.CacheDeleted != 1 || report.Cleanup.IndexDeleted != 1 {
		t.Fatalf("unexpected cleanup report: %+v", report.Cleanup)
	}
	if len(*waited) != 1 || (*waited)[0] != 10*time.Minute {
		t.Fatalf("waited = %v, want one 10m grace period", *waited)
	}
	if report.Failures() != 0 {
		t.Fatalf("Failures() = %d, want 0", report.Failures())
	}
}

func TestSweeper_ReportOnlyByDefault(t *testing.T) {
	cache := &stubCache{}
	index := &stubIndex{}
	svc := NewService(cache, index, discardLogger())

	lister := stubLister{names: []string{"alice-proj1", "bob-proj2"}}

	sweeper, waited := newTestSweeper(svc, lister, &stubObjects{}, SweepOptions{})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if !slices.Equal(report.Orphans, []string{"alice-proj1", "bob-proj2"}) {
		t.Fatalf("Orphans = %v", report.Orphans)
	}
	if len(report.Cleaned) != 0 || len(cache.calls) != 0 || len(index.calls) != 0 {
		t.Fatal("a sweep without Delete must not delete anything")
	}
	if len(*waited) != 0 {
		t.Fatalf("report-only sweep should not wait, waited %v", *waited)
	}
}

func TestSweeper_KeepsIndexWhoseOutputIsStillUploading(t *testing.T) {
	cache := &stubCache{}
	index := &stubIndex{names: map[string]bool{"carol-new-repo": true}}
	svc := NewService(cache, index, discardLogger())

	lister := stubLister{names: []string{"carol-new-repo"}}
	objects := &stubObjects{uploadedAfterFirstCheck: map[string]bool{"carol-new-repo-output.txt": true}}

	sweeper, _ := newTestSweeper(svc, lister, objects, SweepOptions{Delete: true, Grace: time.Minute})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if len(cache.calls) != 0 || len(index.calls) != 0 {
		t.Fatalf("in-flight project was cleaned: cache=%v index=%v", cache.calls, index.calls)
	}
	if len(report.Cleaned) != 0 || report.Live != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if objects.checks["carol-new-repo-output.txt"] != 2 {
		t.Fatalf("expected output to be checked twice, got %d", objects.checks["carol-new-repo-output.txt"])
	}
}

func TestSweeper_Exclude(t *testing.T) {
	cache := &stubCache{}
	index := &stubIndex{names: map[string]bool{"my-index": true}}
	svc := NewService(cache, index, discardLogger())

	lister := stubLister{names: []string{"my-index", "bob-proj2"}}

	sweeper, _ := newTestSweeper(svc, lister, &stubObjects{}, SweepOptions{Delete: true, Exclude: []string{"my-index"}})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if report.Excluded != 1 {
		t.Fatalf("Excluded = %d, want 1", report.Excluded)
	}
	if slices.Contains(index.calls, "my-index") || slices.Contains(cache.calls, "my-index") {
		t.Fatal("excluded index must never be touched")
	}
	if !slices.Equal(report.Cleaned, []string{"bob-proj2"}) {
		t.Fatalf("Cleaned = %v, want [bob-proj2]", report.Cleaned)
	}
}

func TestSweeper_IndexGoneDuringGrace(t *testing.T) {
	cache := &stubCache{}
	index := &stubIndex{}
	svc := NewService(cache, index, discardLogger())

	first := true
	lister := listerFunc(func(ctx context.Context) (map[string]struct{}, error) {
		if first {
			first = false
			return map[string]struct{}{"bob-proj2": {}}, nil
		}
		return map[string]struct{}{}, nil
	})

	sweeper, _ := newTestSweeper(svc, lister, &stubObjects{}, SweepOptions{Delete: true})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(report.Cleaned) != 0 || len(cache.calls) != 0 {
		t.Fatalf("index removed elsewhere should not be cleaned again: %+v", report)
	}
}

type listerFunc func(ctx context.Context) (map[string]struct{}, error)

func (f listerFunc) ListNames(ctx context.Context) (map[string]struct{}, error) { return f(ctx) }

func TestSweeper_CheckFailure(t *testing.T) {
	cache := &stubCache{}
	index := &stubIndex{}
	svc := NewService(cache, index, discardLogger())

	lister := stubLister{names: []string{"alice-proj1", "bob-proj2"}}
	objects := &stubObjects{failOn: "alice-proj1-output.txt"}

	sweeper, _ := newTestSweeper(svc, lister, objects, SweepOptions{Delete: true})
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if report.CheckFailed != 1 || report.Failures() != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !slices.Equal(cache.calls, []string{"bob-proj2"}) {
		t.Fatalf("an unchecked index must not be cleaned, cache calls = %v", cache.calls)
	}
}

func TestSweeper_ListError(t *testing.T) {
	svc := NewService(&stubCache{}, &stubIndex{}, discardLogger())

	sweeper, _ := newTestSweeper(svc, stubLister{err: errors.New("unauthorized")}, &stubObjects{}, SweepOptions{Delete: true})
	if _, err := sweeper.Sweep(context.Background()); err == nil {
		t.Fatal("expected listing error")
	}
}

func TestSweeper_GraceCancelled(t *testing.T) {
	cache := &stubCache{}
	svc := NewService(cache, &stubIndex{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := NewSweeper(svc, stubLister{names: []string{"bob-proj2"}}, &stubObjects{}, SweepOptions{Delete: true, Grace: time.Hour})
	if _, err := sweeper.Sweep(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sweep() error = %v, want context.Canceled", err)
	}
	if len(cache.calls) != 0 {
		t.Fatal("cancelled sweep must not delete anything")
	}
}
