package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a typed wrapper around the screening service HTTP API. All
// authenticated requests carry the session token as a bearer header.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL. token may be empty
// for the unauthenticated auth endpoints.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, "GET", path, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, "POST", path, body)
}

// decodeJSON decodes a 2xx response body into v, or converts an error
// response into the client error taxonomy: 401 becomes *AuthError, any
// other non-2xx becomes *RequestError.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	if v == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

func responseError(resp *http.Response) error {
	msg := readDetail(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{Message: msg}
	}
	return &RequestError{StatusCode: resp.StatusCode, Message: msg}
}

// readDetail extracts the service's {"detail": ...} error message, falling
// back to the raw body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, email, password string) (Token, error) {
	resp, err := c.post(ctx, "/auth/register", credentials{Email: email, Password: password})
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := decodeJSON(resp, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	resp, err := c.post(ctx, "/auth/login", credentials{Email: email, Password: password})
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := decodeJSON(resp, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	resp, err := c.post(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := decodeJSON(resp, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// --- batches ---

// CreateBatch uploads files as one batch via multipart form data. batchName
// is optional and omitted from the form when empty.
func (c *Client) CreateBatch(ctx context.Context, batchName string, files []FileUpload) (BatchCreated, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if batchName != "" {
		if err := w.WriteField("batch_name", batchName); err != nil {
			return BatchCreated{}, fmt.Errorf("writing batch_name field: %w", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Filename)
		if err != nil {
			return BatchCreated{}, fmt.Errorf("creating form file %s: %w", f.Filename, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return BatchCreated{}, fmt.Errorf("writing file %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return BatchCreated{}, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/batches", &buf)
	if err != nil {
		return BatchCreated{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BatchCreated{}, &RequestError{Message: err.Error()}
	}
	var created BatchCreated
	if err := decodeJSON(resp, &created); err != nil {
		return BatchCreated{}, err
	}
	return created, nil
}

func (c *Client) ListBatches(ctx context.Context, page, pageSize int) (BatchPage, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/batches?page=%d&page_size=%d", page, pageSize))
	if err != nil {
		return BatchPage{}, err
	}
	var result BatchPage
	if err := decodeJSON(resp, &result); err != nil {
		return BatchPage{}, err
	}
	return result, nil
}

// --- job descriptions ---

func (c *Client) CreateJD(ctx context.Context, title, rawText string) (JobDescription, error) {
	body := map[string]string{"title": title, "raw_text": rawText}
	resp, err := c.post(ctx, "/jds", body)
	if err != nil {
		return JobDescription{}, err
	}
	var jd JobDescription
	if err := decodeJSON(resp, &jd); err != nil {
		return JobDescription{}, err
	}
	return jd, nil
}

func (c *Client) ListJDs(ctx context.Context, page, pageSize int) (JDPage, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/jds?page=%d&page_size=%d", page, pageSize))
	if err != nil {
		return JDPage{}, err
	}
	var result JDPage
	if err := decodeJSON(resp, &result); err != nil {
		return JDPage{}, err
	}
	return result, nil
}

// --- ranking ---

func (c *Client) Rank(ctx context.Context, req RankRequest) (RankingRun, error) {
	resp, err := c.post(ctx, "/rank", req)
	if err != nil {
		return RankingRun{}, err
	}
	var run RankingRun
	if err := decodeJSON(resp, &run); err != nil {
		return RankingRun{}, err
	}
	return run, nil
}

// --- dashboard ---

func (c *Client) Dashboard(ctx context.Context) (DashboardAggregate, error) {
	resp, err := c.get(ctx, "/dashboard")
	if err != nil {
		return DashboardAggregate{}, err
	}
	var agg DashboardAggregate
	if err := decodeJSON(resp, &agg); err != nil {
		return DashboardAggregate{}, err
	}
	return agg, nil
}

// Health checks service reachability without authentication.
func (c *Client) Health(ctx context.Context) error {
	u, err := url.JoinPath(c.baseURL, "/health")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &RequestError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}
