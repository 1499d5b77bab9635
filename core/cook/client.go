package cook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	requestTimeout = 2 * time.Second
	waitPollEvery  = 1 * time.Second
)

// Client is the HTTP client for the Cook processing service. It holds no
// state beyond the configured base address and client identifier.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a new Cook client
func NewClient(baseURL, clientID string) *Client {
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// JobStatus is the remote view of one job
type JobStatus struct {
	State string `json:"state"`
	Step  string `json:"step"`
	Error string `json:"error"`
}

type submitRequest struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	ClientID   string                 `json:"clientId"`
	RecipeID   string                 `json:"recipeId"`
	Parameters map[string]interface{} `json:"parameters"`
	Priority   string                 `json:"priority"`
	Submission string                 `json:"submission"`
}

// Submit validates parameters against the recipe's schema and creates the job
// remotely. The schema is fetched fresh on every call. On schema violations it
// returns a ValidationError and sends no creation request.
func (c *Client) Submit(ctx context.Context, taskID, name, recipeID string, parameters map[string]interface{}) error {
	recipe, err := c.FetchRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	if err := recipe.ValidateParameters(parameters); err != nil {
		return err
	}

	payload := submitRequest{
		ID:         taskID,
		Name:       name,
		ClientID:   c.clientID,
		RecipeID:   recipeID,
		Parameters: parameters,
		Priority:   "normal",
		Submission: time.Now().UTC().Format(time.RFC3339),
	}

	return c.do(ctx, "submit", http.MethodPost, c.baseURL+"/job", payload, nil)
}

// Run asks Cook to start processing the job
func (c *Client) Run(ctx context.Context, taskID string) error {
	return c.do(ctx, "run", http.MethodPatch, c.jobURL(taskID)+"/run", nil, nil)
}

// Cancel asks Cook to stop processing the job
func (c *Client) Cancel(ctx context.Context, taskID string) error {
	return c.do(ctx, "cancel", http.MethodPatch, c.jobURL(taskID)+"/cancel", nil, nil)
}

// Delete asks Cook to discard its copy of the job
func (c *Client) Delete(ctx context.Context, taskID string) error {
	return c.do(ctx, "delete", http.MethodDelete, c.jobURL(taskID), nil, nil)
}

// PollStatus returns the job's current remote state, step and error text.
// Safe to call at arbitrary frequency.
func (c *Client) PollStatus(ctx context.Context, taskID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, "update", http.MethodGet, c.jobURL(taskID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchReport returns the job's structured result payload. Only meaningful
// once the remote state is terminal.
func (c *Client) FetchReport(ctx context.Context, taskID string) (map[string]interface{}, error) {
	var report map[string]interface{}
	if err := c.do(ctx, "report", http.MethodGet, c.jobURL(taskID)+"/report", nil, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// UploadFile streams a local file into the job's remote file area. A file
// that does not exist locally is skipped: optional artifacts are common.
func (c *Client) UploadFile(ctx context.Context, taskID, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithFields(log.Fields{"task": taskID, "file": filePath}).Info("skipping upload of missing file")
			return nil
		}
		return err
	}
	defer f.Close()

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, taskID, filepath.Base(filePath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cook upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &RemoteServiceError{Operation: "upload", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// DownloadFile streams a file from the job's remote file area to destination,
// creating destination's parent directories first
func (c *Client) DownloadFile(ctx context.Context, taskID, fileName, destination string) error {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, taskID, fileName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cook download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &RemoteServiceError{Operation: "download", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// WaitUntil polls until the remote state equals targetState or timeout
// elapses, in which case it returns a TimeoutError. The steady-state poller
// never uses this; it is a blocking convenience for one-off callers.
func (c *Client) WaitUntil(ctx context.Context, taskID, targetState string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(waitPollEvery)
	defer ticker.Stop()

	for {
		status, err := c.PollStatus(ctx, taskID)
		if err == nil && status.State == targetState {
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{TaskID: taskID, State: targetState, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) jobURL(taskID string) string {
	return fmt.Sprintf("%s/clients/%s/jobs/%s", c.baseURL, c.clientID, taskID)
}

// do issues one JSON request. Non-2xx responses always produce a
// RemoteServiceError carrying the status and body, never partial data.
func (c *Client) do(ctx context.Context, operation, method, url string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cook %s failed: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteServiceError{Operation: operation, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("cook %s returned malformed JSON: %w", operation, err)
		}
	}
	return nil
}
