// Package mockapi is an in-memory implementation of the screening
// service's HTTP API. It backs the mock-server command and the client
// integration tests, so no real backend is needed for local work.
package mockapi

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cvscreen/internal/api"
)

const maxUploadBodySize = 50 << 20 // 50MB

type resumeRecord struct {
	ID       string
	Filename string
	BatchID  string
}

// Server holds all state in memory. Safe for concurrent use.
type Server struct {
	now func() time.Time

	mu       sync.Mutex
	users    map[string]string // email -> password
	tokens   map[string]string // access token -> email
	refresh  map[string]string // refresh token -> email
	batches  []api.Batch
	jds      []api.JobDescription
	resumes  []resumeRecord
	runCount int

	uploadsByDate map[string]int
	runsByDate    map[string]int
	jdsByDate     map[string]int
}

func NewServer() *Server {
	return &Server{
		now:           time.Now,
		users:         make(map[string]string),
		tokens:        make(map[string]string),
		refresh:       make(map[string]string),
		uploadsByDate: make(map[string]int),
		runsByDate:    make(map[string]int),
		jdsByDate:     make(map[string]int),
	}
}

// Handler returns the routed HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/batches", s.handleCreateBatch)
		r.Get("/batches", s.handleListBatches)
		r.Post("/jds", s.handleCreateJD)
		r.Get("/jds", s.handleListJDs)
		r.Post("/rank", s.handleRank)
		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			httpError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		_, ok := s.tokens[auth[len(prefix):]]
		s.mu.Unlock()
		if !ok {
			httpError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		httpError(w, http.StatusConflict, "Email already registered")
		return
	}
	s.users[req.Email] = req.Password
	writeJSON(w, http.StatusCreated, s.issueTokenLocked(req.Email))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[req.Email]; !ok || pw != req.Password {
		httpError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, s.issueTokenLocked(req.Email))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[req.RefreshToken]
	if !ok {
		httpError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, req.RefreshToken)
	writeJSON(w, http.StatusOK, s.issueTokenLocked(email))
}

func (s *Server) issueTokenLocked(email string) api.Token {
	access := uuid.New().String()
	refresh := uuid.New().String()
	s.tokens[access] = email
	s.refresh[refresh] = email
	return api.Token{AccessToken: access, TokenType: "bearer", RefreshToken: refresh}
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
	if err := r.ParseMultipartForm(maxUploadBodySize); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body: %v", err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httpError(w, http.StatusUnprocessableEntity, "at least one file is required")
		return
	}

	name := r.FormValue("batch_name")
	now := s.now().UTC()
	if name == "" {
		name = "Batch " + now.Format("2006-01-02 15:04")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := api.Batch{
		ID:          uuid.New().String(),
		BatchName:   name,
		Status:      api.BatchStatusCompleted, // no async pipeline in the mock
		ResumeCount: len(files),
		CreatedAt:   now,
	}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			httpError(w, http.StatusBadRequest, "reading %s: %v", fh.Filename, err)
			return
		}
		io.Copy(io.Discard, f)
		f.Close()
		s.resumes = append(s.resumes, resumeRecord{
			ID:       uuid.New().String(),
			Filename: fh.Filename,
			BatchID:  batch.ID,
		})
	}
	s.batches = append(s.batches, batch)
	s.uploadsByDate[now.Format("2006-01-02")] += len(files)

	writeJSON(w, http.StatusCreated, api.BatchCreated{
		BatchID:   batch.ID,
		Status:    batch.Status,
		FileCount: batch.ResumeCount,
	})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1, 0)
	pageSize := parseIntParam(r, "page_size", 20, 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first.
	items := make([]api.Batch, len(s.batches))
	for i, b := range s.batches {
		items[len(s.batches)-1-i] = b
	}
	paged, pages := paginate(items, page, pageSize)
	writeJSON(w, http.StatusOK, api.BatchPage{
		Items:    paged,
		Total:    len(items),
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	})
}

func (s *Server) handleCreateJD(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		RawText string `json:"raw_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.RawText) == "" {
		httpError(w, http.StatusUnprocessableEntity, "title and raw_text are required")
		return
	}

	now := s.now().UTC()
	jd := api.JobDescription{
		ID:        uuid.New().String(),
		Title:     req.Title,
		RawText:   req.RawText,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.jds = append(s.jds, jd)
	s.jdsByDate[now.Format("2006-01-02")]++
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, jd)
}

func (s *Server) handleListJDs(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1, 0)
	pageSize := parseIntParam(r, "page_size", 20, 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]api.JobDescription, len(s.jds))
	for i, jd := range s.jds {
		items[len(s.jds)-1-i] = jd
	}
	paged, pages := paginate(items, page, pageSize)
	writeJSON(w, http.StatusOK, api.JDPage{
		Items:    paged,
		Total:    len(items),
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req api.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var jd *api.JobDescription
	for i := range s.jds {
		if s.jds[i].ID == req.JDID {
			jd = &s.jds[i]
			break
		}
	}
	if jd == nil {
		httpError(w, http.StatusNotFound, "Job description not found")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var scored []api.RankedResume
	for _, res := range s.resumes {
		if req.BatchID != "" && res.BatchID != req.BatchID {
			continue
		}
		score := pseudoScore(jd.ID, res.ID)
		if req.MinScore != nil && score < *req.MinScore {
			continue
		}
		scored = append(scored, api.RankedResume{
			ResumeID:        res.ID,
			Filename:        res.Filename,
			SimilarityScore: score,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})

	total := len(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].RankPosition = i + 1
	}

	s.runCount++
	s.runsByDate[s.now().UTC().Format("2006-01-02")]++

	writeJSON(w, http.StatusOK, api.RankingRun{
		RunID:      uuid.New().String(),
		JDID:       jd.ID,
		Results:    scored,
		TotalCount: total,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statusCounts := make(map[string]int)
	for _, b := range s.batches {
		statusCounts[b.Status] += b.ResumeCount
	}

	writeJSON(w, http.StatusOK, api.DashboardAggregate{
		TotalResumes:    len(s.resumes),
		TotalBatches:    len(s.batches),
		TotalJDs:        len(s.jds),
		TotalRuns:       s.runCount,
		ResumesByStatus: statusCounts,
		UploadsByDate:   datedCounts(s.uploadsByDate),
		RunsByDate:      datedCounts(s.runsByDate),
		JDsByDate:       datedCounts(s.jdsByDate),
	})
}

// pseudoScore derives a stable score in [0, 1) from the jd/resume pair, so
// repeated runs against the same data rank identically.
func pseudoScore(jdID, resumeID string) float64 {
	h := fnv.New64a()
	h.Write([]byte(jdID))
	h.Write([]byte{0})
	h.Write([]byte(resumeID))
	return float64(h.Sum64()%10000) / 10000
}

func paginate[T any](items []T, page, pageSize int) ([]T, int) {
	pages := (len(items) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, pages
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pages
}

func datedCounts(m map[string]int) []api.DatedCount {
	out := make([]api.DatedCount, 0, len(m))
	for date, count := range m {
		out = append(out, api.DatedCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil || v < 1 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
