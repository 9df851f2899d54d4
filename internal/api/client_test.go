package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type recordedRequest struct {
	Method      string
	Path        string
	Body        string
	Auth        string
	ContentType string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.RequestURI(),
			Body:        body.String(),
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"detail":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *Client {
	return NewClient(ts.server.URL, "test-token", 5*time.Second)
}

var ctx = context.Background()

func TestLogin(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /auth/login": `{"access_token":"at-1","token_type":"bearer","refresh_token":"rt-1"}`,
	})

	tok, err := ts.client().Login(ctx, "a@b.test", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "at-1" {
		t.Errorf("access token = %q, want at-1", tok.AccessToken)
	}
	if tok.RefreshToken != "rt-1" {
		t.Errorf("refresh token = %q, want rt-1", tok.RefreshToken)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if !strings.Contains(ts.requests[0].Body, `"email":"a@b.test"`) {
		t.Errorf("body = %q, want it to contain the email", ts.requests[0].Body)
	}
}

func TestListBatches_QueryAndAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /batches": `{"items":[{"id":"b1","batch_name":"jan","status":"completed","created_at":"2025-01-05T10:00:00Z","resume_count":3}],"total":1,"page":2,"page_size":10,"pages":1}`,
	})

	page, err := ts.client().ListBatches(ctx, 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(page.Items))
	}
	if page.Items[0].Status != BatchStatusCompleted {
		t.Errorf("status = %q, want completed", page.Items[0].Status)
	}

	r := ts.requests[0]
	if r.Path != "/batches?page=2&page_size=10" {
		t.Errorf("path = %q, want /batches?page=2&page_size=10", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
}

func TestCreateBatch_Multipart(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /batches": `{"batch_id":"b-9","status":"pending","file_count":2}`,
	})

	files := []FileUpload{
		{Filename: "a.pdf", Data: []byte("pdf-a")},
		{Filename: "b.docx", Data: []byte("doc-b")},
	}
	created, err := ts.client().CreateBatch(ctx, "January 2025", files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.BatchID != "b-9" {
		t.Errorf("batch id = %q, want b-9", created.BatchID)
	}
	if created.FileCount != 2 {
		t.Errorf("file count = %d, want 2", created.FileCount)
	}

	r := ts.requests[0]
	mediaType, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		t.Fatalf("parsing content type: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q, want multipart/form-data", mediaType)
	}

	mr := multipart.NewReader(strings.NewReader(r.Body), params["boundary"])
	var names, filenames []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading part: %v", err)
		}
		names = append(names, part.FormName())
		if part.FileName() != "" {
			filenames = append(filenames, part.FileName())
		}
	}
	if names[0] != "batch_name" {
		t.Errorf("first field = %q, want batch_name", names[0])
	}
	if len(filenames) != 2 || filenames[0] != "a.pdf" || filenames[1] != "b.docx" {
		t.Errorf("filenames = %v, want [a.pdf b.docx]", filenames)
	}
}

func TestCreateBatch_OmitsEmptyName(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /batches": `{"batch_id":"b-1","status":"pending","file_count":1}`,
	})

	_, err := ts.client().CreateBatch(ctx, "", []FileUpload{{Filename: "a.pdf", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(ts.requests[0].Body, "batch_name") {
		t.Errorf("body contains batch_name field for empty name")
	}
}

func TestRank_OmitsUnsetFields(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /rank": `{"run_id":"r1","jd_id":"jd1","results":[],"total_count":0}`,
	})

	min := 0.5
	_, err := ts.client().Rank(ctx, RankRequest{JDID: "jd1", Limit: 50, MinScore: &min})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := ts.requests[0].Body
	if strings.Contains(body, "batch_id") {
		t.Errorf("body = %q, want batch_id omitted", body)
	}
	if !strings.Contains(body, `"min_score":0.5`) {
		t.Errorf("body = %q, want min_score 0.5", body)
	}
	if !strings.Contains(body, `"limit":50`) {
		t.Errorf("body = %q, want limit 50", body)
	}
}

func TestUnauthorizedBecomesAuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "stale", 5*time.Second)
	_, err := client.Dashboard(ctx)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if !strings.Contains(authErr.Message, "token expired") {
		t.Errorf("message = %q, want it to mention 'token expired'", authErr.Message)
	}
}

func TestServerErrorBecomesRequestError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`{"detail":"embedding service down"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "tok", 5*time.Second)
	_, err := client.ListJDs(ctx, 1, 20)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != 500 {
		t.Errorf("status = %d, want 500", reqErr.StatusCode)
	}
	if !strings.Contains(reqErr.Message, "embedding service down") {
		t.Errorf("message = %q, want detail text", reqErr.Message)
	}
}

func TestTransportErrorBecomesRequestError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := NewClient(ts.URL, "tok", time.Second)
	_, err := client.Dashboard(ctx)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for transport failure", reqErr.StatusCode)
	}
}

func TestDashboardDecoding(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /dashboard": `{
			"total_resumes": 12, "total_batches": 3, "total_jds": 2, "total_runs": 5,
			"resumes_by_status": {"completed": 10, "failed": 2},
			"uploads_by_date": [{"date":"2025-01-05","count":4}],
			"runs_by_date": [], "jds_by_date": []
		}`,
	})

	agg, err := ts.client().Dashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.TotalResumes != 12 {
		t.Errorf("total resumes = %d, want 12", agg.TotalResumes)
	}
	if agg.ResumesByStatus["failed"] != 2 {
		t.Errorf("failed count = %d, want 2", agg.ResumesByStatus["failed"])
	}
	if len(agg.UploadsByDate) != 1 || agg.UploadsByDate[0].Date != "2025-01-05" {
		t.Errorf("uploads_by_date = %v, want one 2025-01-05 entry", agg.UploadsByDate)
	}
}
