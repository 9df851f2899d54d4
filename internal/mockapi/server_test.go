package mockapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"cvscreen/internal/api"
)

var ctx = context.Background()

// newTestClient boots the mock server and returns an authenticated client
// against it.
func newTestClient(t *testing.T) *api.Client {
	t.Helper()

	srv := httptest.NewServer(NewServer().Handler())
	t.Cleanup(srv.Close)

	c := api.NewClient(srv.URL, "", 5*time.Second)
	tok, err := c.Register(ctx, "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	c.SetToken(tok.AccessToken)
	return c
}

func uploadFiles(n int) []api.FileUpload {
	files := make([]api.FileUpload, n)
	for i := range files {
		files[i] = api.FileUpload{
			Filename: "cv" + string(rune('a'+i)) + ".pdf",
			Data:     []byte("%PDF-1.4 stub"),
		}
	}
	return files
}

func TestAuthFlow(t *testing.T) {
	srv := httptest.NewServer(NewServer().Handler())
	defer srv.Close()

	c := api.NewClient(srv.URL, "", 5*time.Second)

	tok, err := c.Register(ctx, "a@b.c", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Errorf("token = %+v", tok)
	}

	// Duplicate registration is rejected.
	if _, err := c.Register(ctx, "a@b.c", "pw"); err == nil {
		t.Error("duplicate register succeeded")
	}

	// Wrong password is an auth error.
	_, err = c.Login(ctx, "a@b.c", "wrong")
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("login error = %v, want *AuthError", err)
	}

	login, err := c.Login(ctx, "a@b.c", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Refresh rotates the token pair; the old refresh token dies.
	next, err := c.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == login.AccessToken {
		t.Error("refresh returned the same access token")
	}
	if _, err := c.Refresh(ctx, login.RefreshToken); err == nil {
		t.Error("spent refresh token accepted")
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	srv := httptest.NewServer(NewServer().Handler())
	defer srv.Close()

	c := api.NewClient(srv.URL, "", 5*time.Second)

	_, err := c.ListBatches(ctx, 1, 20)
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("error = %v, want *AuthError", err)
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("health should not require auth: %v", err)
	}
}

func TestUploadAndListBatches(t *testing.T) {
	c := newTestClient(t)

	created, err := c.CreateBatch(ctx, "January", uploadFiles(3))
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if created.FileCount != 3 {
		t.Errorf("file count = %d, want 3", created.FileCount)
	}
	if created.Status != api.BatchStatusCompleted {
		t.Errorf("status = %q, want completed", created.Status)
	}

	if _, err := c.CreateBatch(ctx, "February", uploadFiles(1)); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	page, err := c.ListBatches(ctx, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("total = %d, items = %d, want 2/2", page.Total, len(page.Items))
	}
	if page.Items[0].BatchName != "February" {
		t.Errorf("first item = %q, want newest first", page.Items[0].BatchName)
	}
	if page.Items[1].ResumeCount != 3 {
		t.Errorf("resume count = %d, want 3", page.Items[1].ResumeCount)
	}
}

func TestListBatches_Pagination(t *testing.T) {
	c := newTestClient(t)

	for i := 0; i < 5; i++ {
		if _, err := c.CreateBatch(ctx, "", uploadFiles(1)); err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}

	page, err := c.ListBatches(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.Pages != 3 {
		t.Errorf("pages = %d, want 3", page.Pages)
	}
	if len(page.Items) != 2 {
		t.Errorf("items = %d, want 2", len(page.Items))
	}
	if page.Total != 5 {
		t.Errorf("total = %d, want 5", page.Total)
	}

	// A page past the end is empty, not an error.
	empty, err := c.ListBatches(ctx, 9, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Items) != 0 {
		t.Errorf("items past end = %d, want 0", len(empty.Items))
	}
}

func TestCreateAndListJDs(t *testing.T) {
	c := newTestClient(t)

	jd, err := c.CreateJD(ctx, "Backend Engineer", "Go, SQL, APIs")
	if err != nil {
		t.Fatalf("create jd: %v", err)
	}
	if jd.ID == "" || jd.Title != "Backend Engineer" {
		t.Errorf("jd = %+v", jd)
	}

	page, err := c.ListJDs(ctx, 1, 20)
	if err != nil {
		t.Fatalf("list jds: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != jd.ID {
		t.Errorf("page = %+v", page)
	}
}

func TestRank(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.CreateBatch(ctx, "pool", uploadFiles(4)); err != nil {
		t.Fatal(err)
	}
	jd, err := c.CreateJD(ctx, "Engineer", "requirements")
	if err != nil {
		t.Fatal(err)
	}

	run, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID, Limit: 50})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if run.TotalCount != 4 || len(run.Results) != 4 {
		t.Fatalf("total = %d, results = %d, want 4/4", run.TotalCount, len(run.Results))
	}
	for i, r := range run.Results {
		if r.RankPosition != i+1 {
			t.Errorf("result %d rank = %d", i, r.RankPosition)
		}
		if i > 0 && r.SimilarityScore > run.Results[i-1].SimilarityScore {
			t.Errorf("results not sorted by score at %d", i)
		}
	}

	// Same inputs rank identically.
	again, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(run.Results, again.Results) {
		t.Error("repeated rank produced different results")
	}
}

func TestRank_FiltersAndLimits(t *testing.T) {
	c := newTestClient(t)

	b1, err := c.CreateBatch(ctx, "first", uploadFiles(3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateBatch(ctx, "second", uploadFiles(2)); err != nil {
		t.Fatal(err)
	}
	jd, err := c.CreateJD(ctx, "Engineer", "requirements")
	if err != nil {
		t.Fatal(err)
	}

	scoped, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID, BatchID: b1.BatchID})
	if err != nil {
		t.Fatal(err)
	}
	if scoped.TotalCount != 3 {
		t.Errorf("batch-scoped total = %d, want 3", scoped.TotalCount)
	}

	limited, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited.Results) != 2 || limited.TotalCount != 5 {
		t.Errorf("limited: results = %d, total = %d, want 2/5", len(limited.Results), limited.TotalCount)
	}

	floor := 1.1 // above any possible score
	none, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID, MinScore: &floor})
	if err != nil {
		t.Fatal(err)
	}
	if none.TotalCount != 0 {
		t.Errorf("min_score above 1 still matched %d", none.TotalCount)
	}
}

func TestRank_UnknownJD(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Rank(ctx, api.RankRequest{JDID: "no-such-jd"})
	var reqErr *api.RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != 404 {
		t.Errorf("error = %v, want 404 *RequestError", err)
	}
}

func TestDashboard(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.CreateBatch(ctx, "pool", uploadFiles(2)); err != nil {
		t.Fatal(err)
	}
	jd, err := c.CreateJD(ctx, "Engineer", "requirements")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Rank(ctx, api.RankRequest{JDID: jd.ID}); err != nil {
		t.Fatal(err)
	}

	agg, err := c.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if agg.TotalResumes != 2 || agg.TotalBatches != 1 || agg.TotalJDs != 1 || agg.TotalRuns != 1 {
		t.Errorf("totals = %+v", agg)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if len(agg.UploadsByDate) != 1 || agg.UploadsByDate[0].Date != today || agg.UploadsByDate[0].Count != 2 {
		t.Errorf("uploads_by_date = %v", agg.UploadsByDate)
	}
	if agg.ResumesByStatus[api.BatchStatusCompleted] != 2 {
		t.Errorf("resumes_by_status = %v", agg.ResumesByStatus)
	}
}
