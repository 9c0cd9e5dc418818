package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"viralvision/internal/api"
	"viralvision/internal/daemon"
)

// apiClient talks to a running daemon over its HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx daemon response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *apiClient) SubmitScript(ctx context.Context, account int64, req api.ScriptRequest) (api.SubmissionResponse, error) {
	var out api.SubmissionResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs/script", account, req, &out)
	return out, err
}

func (c *apiClient) SubmitLink(ctx context.Context, account int64, req api.LinkRequest) (api.SubmissionResponse, error) {
	var out api.SubmissionResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs/link", account, req, &out)
	return out, err
}

// SubmitUpload streams the file as the multipart "file" field.
func (c *apiClient) SubmitUpload(ctx context.Context, account int64, path string) (api.SubmissionResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.SubmissionResponse{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out api.SubmissionResponse
	err = c.do(ctx, http.MethodPost, "/api/jobs/upload", account, pr, mw.FormDataContentType(), &out)
	return out, err
}

func (c *apiClient) Job(ctx context.Context, account, id int64) (api.JobView, error) {
	var out api.JobView
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+strconv.FormatInt(id, 10), account, nil, &out)
	return out, err
}

func (c *apiClient) Jobs(ctx context.Context, account int64, limit int) ([]api.JobSummary, error) {
	var out api.JobListResponse
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.doJSON(ctx, http.MethodGet, path, account, nil, &out)
	return out.Jobs, err
}

func (c *apiClient) Stats(ctx context.Context, account int64) (api.StatsView, error) {
	var out api.StatsView
	err := c.doJSON(ctx, http.MethodGet, "/api/stats", account, nil, &out)
	return out, err
}

func (c *apiClient) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.doJSON(ctx, http.MethodGet, "/api/status", 0, nil, &out)
	return out, err
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, account int64, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, account, body, contentType, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, account int64, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if account > 0 {
		req.Header.Set(daemon.AccountHeader, strconv.FormatInt(account, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error, base string) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `viralvision serve`", base)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func isDaemonUnavailable(err error) bool {
	var apiErr *apiError
	return err != nil && !errors.As(err, &apiErr)
}
