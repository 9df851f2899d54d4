// Package screening executes the write operations against the service:
// batch upload, job description creation and ranking. Each operation
// validates its inputs before touching the network, declares which cached
// resources it invalidates, and applies that invalidation only on success.
package screening

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cvscreen/internal/api"
	"cvscreen/internal/querycache"
	"cvscreen/internal/rankview"
)

// ValidationError reports a client-side input problem. Nothing is sent to
// the server when one of these is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InFlightError reports that the same operation is already running.
// Operations are not idempotent, so a duplicate invocation is rejected
// rather than queued.
type InFlightError struct {
	Op string
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Op)
}

// Backend performs the network writes.
type Backend interface {
	CreateBatch(ctx context.Context, batchName string, files []api.FileUpload) (api.BatchCreated, error)
	CreateJD(ctx context.Context, title, rawText string) (api.JobDescription, error)
	Rank(ctx context.Context, req api.RankRequest) (api.RankingRun, error)
}

// Invalidator marks cached resources stale after a successful mutation.
type Invalidator interface {
	Invalidate(resources ...querycache.Resource)
}

// Rank limit bounds; the default applies when the caller passes zero.
const (
	defaultRankLimit = 50
	maxRankLimit     = 200
)

const (
	opUpload   = "upload"
	opCreateJD = "create jd"
	opRank     = "rank"
)

// Orchestrator runs mutations. At most one invocation of each operation may
// be in flight at a time.
type Orchestrator struct {
	backend Backend
	cache   Invalidator
	view    *rankview.View

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(backend Backend, cache Invalidator, view *rankview.View) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		cache:    cache,
		view:     view,
		inFlight: make(map[string]bool),
	}
}

func (o *Orchestrator) begin(op string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[op] {
		return &InFlightError{Op: op}
	}
	o.inFlight[op] = true
	return nil
}

func (o *Orchestrator) end(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight[op] = false
}

// InFlight reports whether op is currently running. Used by interactive
// surfaces to reflect the in-progress state.
func (o *Orchestrator) InFlight(op string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[op]
}

// UploadBatch uploads files as a new batch. Requires at least one file; a
// provided batch name must not be blank. On success the batches and
// dashboard caches are invalidated.
func (o *Orchestrator) UploadBatch(ctx context.Context, batchName string, files []api.FileUpload) (api.BatchCreated, error) {
	if len(files) == 0 {
		return api.BatchCreated{}, &ValidationError{Field: "files", Message: "at least one file is required"}
	}
	name := strings.TrimSpace(batchName)
	if batchName != "" && name == "" {
		return api.BatchCreated{}, &ValidationError{Field: "batch_name", Message: "must not be blank"}
	}

	if err := o.begin(opUpload); err != nil {
		return api.BatchCreated{}, err
	}
	defer o.end(opUpload)

	created, err := o.backend.CreateBatch(ctx, name, files)
	if err != nil {
		return api.BatchCreated{}, err
	}

	o.cache.Invalidate(querycache.Batches, querycache.Dashboard)
	return created, nil
}

// CreateJD creates a job description. Title and body must be non-empty
// after trimming. On success the jds and dashboard caches are invalidated.
func (o *Orchestrator) CreateJD(ctx context.Context, title, rawText string) (api.JobDescription, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return api.JobDescription{}, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if strings.TrimSpace(rawText) == "" {
		return api.JobDescription{}, &ValidationError{Field: "raw_text", Message: "must not be empty"}
	}

	if err := o.begin(opCreateJD); err != nil {
		return api.JobDescription{}, err
	}
	defer o.end(opCreateJD)

	jd, err := o.backend.CreateJD(ctx, title, rawText)
	if err != nil {
		return api.JobDescription{}, err
	}

	o.cache.Invalidate(querycache.JDs, querycache.Dashboard)
	return jd, nil
}

// RankParams are the inputs of a ranking run. BatchID empty ranks across
// all batches; MinScore nil applies no score floor; Limit zero uses the
// default.
type RankParams struct {
	JDID     string
	BatchID  string
	Limit    int
	MinScore *float64
}

// Rank scores resumes against a job description. The result replaces the
// single-slot view-model and is never cached, so no invalidation happens.
func (o *Orchestrator) Rank(ctx context.Context, p RankParams) (api.RankingRun, error) {
	if p.JDID == "" {
		return api.RankingRun{}, &ValidationError{Field: "jd_id", Message: "is required"}
	}
	if p.Limit == 0 {
		p.Limit = defaultRankLimit
	}
	if p.Limit < 1 || p.Limit > maxRankLimit {
		return api.RankingRun{}, &ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxRankLimit)}
	}
	if p.MinScore != nil && (*p.MinScore < 0 || *p.MinScore > 1) {
		return api.RankingRun{}, &ValidationError{Field: "min_score", Message: "must be between 0 and 1"}
	}

	if err := o.begin(opRank); err != nil {
		return api.RankingRun{}, err
	}
	defer o.end(opRank)

	run, err := o.backend.Rank(ctx, api.RankRequest{
		JDID:     p.JDID,
		BatchID:  p.BatchID,
		Limit:    p.Limit,
		MinScore: p.MinScore,
	})
	if err != nil {
		return api.RankingRun{}, err
	}

	o.view.Replace(run)
	return run, nil
}
