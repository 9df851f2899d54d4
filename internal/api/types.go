package api

import "time"

// Batch statuses reported by the screening service. The service has been
// observed to report both "completed" and "processed" for finished batches;
// both are kept as distinct values and rendered the same way.
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusProcessed  = "processed"
	BatchStatusFailed     = "failed"
)

// Token is the response of the auth endpoints.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Batch summarizes one uploaded resume batch.
type Batch struct {
	ID          string    `json:"id"`
	BatchName   string    `json:"batch_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ResumeCount int       `json:"resume_count"`
}

// BatchPage is one page of batches.
type BatchPage struct {
	Items    []Batch `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Pages    int     `json:"pages"`
}

// BatchCreated is returned by the upload endpoint.
type BatchCreated struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	FileCount int    `json:"file_count"`
}

// JobDescription is a ranking target. Immutable once created.
type JobDescription struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	RawText   string    `json:"raw_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JDPage is one page of job descriptions.
type JDPage struct {
	Items    []JobDescription `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Pages    int              `json:"pages"`
}

// DatedCount is one entry of a per-day activity series. Date is a UTC
// calendar date in YYYY-MM-DD form.
type DatedCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardAggregate is the server-computed activity summary. The client
// never mutates it, only re-fetches.
type DashboardAggregate struct {
	TotalResumes    int            `json:"total_resumes"`
	TotalBatches    int            `json:"total_batches"`
	TotalJDs        int            `json:"total_jds"`
	TotalRuns       int            `json:"total_runs"`
	ResumesByStatus map[string]int `json:"resumes_by_status"`
	UploadsByDate   []DatedCount   `json:"uploads_by_date"`
	RunsByDate      []DatedCount   `json:"runs_by_date"`
	JDsByDate       []DatedCount   `json:"jds_by_date"`
}

// RankRequest is the body of the rank endpoint. BatchID empty means rank
// across all batches; MinScore nil means no score floor. Both are omitted
// from the wire body when unset.
type RankRequest struct {
	JDID     string   `json:"jd_id"`
	BatchID  string   `json:"batch_id,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

// RankedResume is one row of a ranking run, ordered by RankPosition.
type RankedResume struct {
	ResumeID        string  `json:"resume_id"`
	Filename        string  `json:"filename"`
	SimilarityScore float64 `json:"similarity_score"`
	RankPosition    int     `json:"rank_position"`
	BatchID         string  `json:"batch_id,omitempty"`
}

// RankingRun is the result of one scoring invocation. Results arrive sorted
// by rank position ascending and must be rendered as-delivered.
type RankingRun struct {
	RunID      string         `json:"run_id"`
	JDID       string         `json:"jd_id"`
	Results    []RankedResume `json:"results"`
	TotalCount int            `json:"total_count"`
}

// FileUpload is one file of a batch upload.
type FileUpload struct {
	Filename string
	Data     []byte
}
