package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aerae/accelerator/pkg/requestid"
)

const DefaultTimeout = 60 * time.Second

// Job is the API view of an assessment job. Result is set once the job is terminal.
type Job struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (j *Job) IsTerminal() bool {
	return j.Status == "Complete" || j.Status == "Failed"
}

// APIError is a non success answer of the API server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%d: %s (request id %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// AssessmentClient talks to the assessment API.
type AssessmentClient struct {
	server     string
	httpClient *http.Client
}

// NewFromConfig returns a new API client from the given config.
func NewFromConfig(config *Config, timeout time.Duration) (*AssessmentClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AssessmentClient{
		server:     strings.TrimRight(config.Service.Server, "/"),
		httpClient: NewHTTPClient(timeout),
	}, nil
}

// NewHTTPClient returns a new HTTP Client with the given overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Submit starts an assessment. pdfPath is optional; when set the document is uploaded with
// the repository url as a multipart form.
func (c *AssessmentClient) Submit(ctx context.Context, githubURL, pdfPath string) (*Job, error) {
	var (
		body        io.Reader
		contentType string
	)

	if pdfPath == "" {
		raw, err := json.Marshal(map[string]string{"github_url": githubURL})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	} else {
		buf, ct, err := multipartBody(githubURL, pdfPath)
		if err != nil {
			return nil, err
		}
		body = buf
		contentType = ct
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/assess", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	job := &Job{}
	if _, err := c.do(req, job, http.StatusOK); err != nil {
		return nil, fmt.Errorf("submitting assessment: %w", err)
	}
	return job, nil
}

// Get polls a job once.
func (c *AssessmentClient) Get(ctx context.Context, jobID string) (*Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/assess/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	job := &Job{}
	if _, err := c.do(req, job, http.StatusOK, http.StatusAccepted); err != nil {
		return nil, fmt.Errorf("reading job/%s: %w", jobID, err)
	}
	return job, nil
}

// Wait polls the job every interval until it is terminal or ctx is done.
func (c *AssessmentClient) Wait(ctx context.Context, jobID string, interval time.Duration, onPoll func(*Job)) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onPoll != nil {
			onPoll(job)
		}
		if job.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *AssessmentClient) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	var reply struct {
		Status string `json:"status"`
	}
	if _, err := c.do(req, &reply, http.StatusOK); err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	if reply.Status != "ok" {
		return fmt.Errorf("server reported status %q", reply.Status)
	}
	return nil
}

func (c *AssessmentClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(requestid.Header, requestid.Generate())
	return req, nil
}

func (c *AssessmentClient) do(req *http.Request, out any, accepted ...int) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	for _, code := range accepted {
		if resp.StatusCode == code {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
			}
			return resp.StatusCode, nil
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var reply struct {
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(raw, &reply) == nil && reply.Message != "" {
		apiErr.Message = reply.Message
		apiErr.RequestID = reply.RequestID
	}
	return resp.StatusCode, apiErr
}

func multipartBody(githubURL, pdfPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("github_url", githubURL); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("pdf", filepath.Base(pdfPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// ServerInfo is the version reported by the API server.
type ServerInfo struct {
	GitCommit   string `json:"gitCommit"`
	VersionName string `json:"versionName"`
}

func (c *AssessmentClient) Info(ctx context.Context) (*ServerInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/info", nil)
	if err != nil {
		return nil, err
	}
	info := &ServerInfo{}
	if _, err := c.do(req, info, http.StatusOK); err != nil {
		return nil, fmt.Errorf("reading server info: %w", err)
	}
	return info, nil
}

// Generation is the answer of the generate endpoints. FallbackUsed and FallbackReason are
// only set when no provider was named.
type Generation struct {
	Response       string  `json:"response"`
	Source         string  `json:"source"`
	FallbackUsed   bool    `json:"fallback_used,omitempty"`
	FallbackReason *string `json:"fallback_reason,omitempty"`
}

// Generate sends prompt to the server. An empty provider lets the server fall back between
// its configured providers.
func (c *AssessmentClient) Generate(ctx context.Context, provider, prompt string) (*Generation, error) {
	raw, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	path := "/api/v1/generate"
	if provider != "" {
		path += "/" + url.PathEscape(provider)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	out := &Generation{}
	if _, err := c.do(req, out, http.StatusOK); err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}
	return out, nil
}
