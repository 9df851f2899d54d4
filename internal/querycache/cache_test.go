package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cvscreen/internal/api"
)

type fakeFetcher struct {
	batchCalls int32
	jdCalls    int32
	dashCalls  int32

	mu       sync.Mutex
	batchErr error

	// When set, ListBatches signals started and blocks until gate closes.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) ListBatches(ctx context.Context, page, pageSize int) (api.BatchPage, error) {
	atomic.AddInt32(&f.batchCalls, 1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	err := f.batchErr
	f.mu.Unlock()
	if err != nil {
		return api.BatchPage{}, err
	}
	return api.BatchPage{
		Items: []api.Batch{{ID: "b1", Status: api.BatchStatusCompleted, ResumeCount: page}},
		Total: 1, Page: page, PageSize: pageSize,
	}, nil
}

func (f *fakeFetcher) ListJDs(ctx context.Context, page, pageSize int) (api.JDPage, error) {
	atomic.AddInt32(&f.jdCalls, 1)
	return api.JDPage{Items: []api.JobDescription{{ID: "jd1", Title: "Backend"}}, Total: 1}, nil
}

func (f *fakeFetcher) Dashboard(ctx context.Context) (api.DashboardAggregate, error) {
	atomic.AddInt32(&f.dashCalls, 1)
	return api.DashboardAggregate{TotalResumes: 7}, nil
}

func (f *fakeFetcher) setBatchErr(err error) {
	f.mu.Lock()
	f.batchErr = err
	f.mu.Unlock()
}

var ctx = context.Background()

func TestFetchBatches_SecondReadHitsCache(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)

	first, err := c.FetchBatches(ctx, 1, 20)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := c.FetchBatches(ctx, 1, 20)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if n := atomic.LoadInt32(&f.batchCalls); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
	if first.Items[0].ID != second.Items[0].ID {
		t.Errorf("cache returned a different value")
	}
}

func TestDistinctParams_DistinctEntries(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)

	p1, _ := c.FetchBatches(ctx, 1, 20)
	p2, _ := c.FetchBatches(ctx, 2, 20)

	if n := atomic.LoadInt32(&f.batchCalls); n != 2 {
		t.Errorf("network calls = %d, want 2", n)
	}
	if p1.Page == p2.Page {
		t.Errorf("pages = %d and %d, want distinct results", p1.Page, p2.Page)
	}
}

func TestConcurrentReads_SingleNetworkCall(t *testing.T) {
	f := &fakeFetcher{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := New(f)

	results := make(chan api.BatchPage, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			p, err := c.FetchBatches(ctx, 1, 20)
			results <- p
			errs <- err
		}()
	}

	// Wait for the first reader to be in flight, give the second time to
	// join it, then release.
	<-f.started
	time.Sleep(50 * time.Millisecond)
	close(f.gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("reader %d: %v", i, err)
		}
	}
	a, b := <-results, <-results
	if a.Items[0].ID != b.Items[0].ID {
		t.Errorf("readers observed different values")
	}
	if n := atomic.LoadInt32(&f.batchCalls); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestConcurrentReads_ShareFailure(t *testing.T) {
	f := &fakeFetcher{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	f.setBatchErr(errors.New("boom"))
	c := New(f)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := c.FetchBatches(ctx, 1, 20)
			errs <- err
		}()
	}

	<-f.started
	time.Sleep(50 * time.Millisecond)
	close(f.gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			t.Errorf("reader %d: error = nil, want failure", i)
		}
	}
	if n := atomic.LoadInt32(&f.batchCalls); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)

	c.FetchBatches(ctx, 1, 20)
	c.FetchDashboard(ctx)

	c.Invalidate(Batches)

	c.FetchBatches(ctx, 1, 20)
	c.FetchDashboard(ctx)

	if n := atomic.LoadInt32(&f.batchCalls); n != 2 {
		t.Errorf("batch calls = %d, want 2 after invalidation", n)
	}
	if n := atomic.LoadInt32(&f.dashCalls); n != 1 {
		t.Errorf("dashboard calls = %d, want 1 (not invalidated)", n)
	}
}

func TestFailedRefetch_DoesNotStickAndRetries(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)

	if _, err := c.FetchBatches(ctx, 1, 20); err != nil {
		t.Fatalf("seed read: %v", err)
	}

	c.Invalidate(Batches)
	f.setBatchErr(errors.New("service unavailable"))

	if _, err := c.FetchBatches(ctx, 1, 20); err == nil {
		t.Fatal("expected error after invalidation with failing fetcher")
	}

	// Failure is not cached: once the service recovers, the next read
	// fetches fresh data.
	f.setBatchErr(nil)
	p, err := c.FetchBatches(ctx, 1, 20)
	if err != nil {
		t.Fatalf("recovered read: %v", err)
	}
	if len(p.Items) != 1 {
		t.Errorf("items = %d, want 1", len(p.Items))
	}
	if n := atomic.LoadInt32(&f.batchCalls); n != 3 {
		t.Errorf("batch calls = %d, want 3", n)
	}
}

func TestWarm_FetchesAllResources(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)

	if err := c.Warm(ctx, 1, 20); err != nil {
		t.Fatalf("warm: %v", err)
	}

	// All three populated: subsequent reads are cache hits.
	c.FetchBatches(ctx, 1, 20)
	c.FetchJDs(ctx, 1, 20)
	c.FetchDashboard(ctx)

	if n := atomic.LoadInt32(&f.batchCalls); n != 1 {
		t.Errorf("batch calls = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&f.jdCalls); n != 1 {
		t.Errorf("jd calls = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&f.dashCalls); n != 1 {
		t.Errorf("dashboard calls = %d, want 1", n)
	}
}
