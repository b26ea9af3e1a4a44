// Package backup copies manuscript bundles to and from a GitHub repository
// using the contents API, so a plain repository doubles as remote storage.
package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"scribe/config"
	"scribe/misc"
)

// ErrNotFound is returned when the requested remote path does not exist.
var ErrNotFound = errors.New("remote path not found")

// Client talks to the GitHub contents API for a single repository.
type Client struct {
	cfg *config.GitHubConfig
	hc  *http.Client
	log *zap.Logger
}

// NewClient prepares an API client. Configuration must carry owner,
// repository and token.
func NewClient(cfg *config.GitHubConfig, log *zap.Logger) (*Client, error) {
	if cfg.Owner == "" || cfg.Repository == "" {
		return nil, errors.New("backup repository is not configured")
	}
	if cfg.Token == "" {
		return nil, errors.New("backup token is not configured")
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: time.Minute},
		log: log,
	}, nil
}

// Entry describes one remote file or directory.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

type contentResponse struct {
	Entry
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

func (c *Client) contentsURL(repoPath string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.Endpoint, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repository), repoPath)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+string(c.cfg.Token))
	req.Header.Set("User-Agent", misc.GetAppName()+"/"+misc.GetVersion())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.hc.Do(req)
}

// Download fetches one remote file.
func (c *Client) Download(ctx context.Context, repoPath string) ([]byte, error) {
	u := c.contentsURL(repoPath)
	if c.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(c.cfg.Branch)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, repoPath)
	default:
		return nil, apiError(resp)
	}

	var cr contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}
	if cr.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding %q for %s", cr.Encoding, repoPath)
	}
	data, err := base64.StdEncoding.DecodeString(despace(cr.Content))
	if err != nil {
		return nil, fmt.Errorf("unable to decode content of %s: %w", repoPath, err)
	}
	return data, nil
}

// List enumerates a remote directory.
func (c *Client) List(ctx context.Context, repoPath string) ([]Entry, error) {
	u := c.contentsURL(repoPath)
	if c.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(c.cfg.Branch)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, repoPath)
	default:
		return nil, apiError(resp)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("unable to decode listing: %w", err)
	}
	return entries, nil
}

// Upload stores one file, creating or updating it. Uploads are retried
// with a linear delay since they are idempotent for the same content.
func (c *Client) Upload(ctx context.Context, repoPath string, data []byte, message string) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.log.Warn("Retrying upload",
				zap.String("path", repoPath),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay()):
			}
		}
		lastErr = c.upload(ctx, repoPath, data, message)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("upload of %s failed: %w", repoPath, lastErr)
}

func (c *Client) upload(ctx context.Context, repoPath string, data []byte, message string) error {
	sha, err := c.remoteSHA(ctx, repoPath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  c.cfg.Branch,
		SHA:     sha,
	})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, c.contentsURL(repoPath), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	default:
		return apiError(resp)
	}
}

func (c *Client) remoteSHA(ctx context.Context, repoPath string) (string, error) {
	u := c.contentsURL(repoPath)
	if c.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(c.cfg.Branch)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, repoPath)
	default:
		return "", apiError(resp)
	}

	var cr contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("unable to decode response: %w", err)
	}
	return cr.SHA, nil
}

// RemotePrefix is the repository directory holding the named bundle for
// the configured user.
func (c *Client) RemotePrefix(bundleName string) string {
	user := c.cfg.User
	if user == "" {
		user = c.cfg.Owner
	}
	return path.Join("backups", user, bundleName)
}

func apiError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	if payload.Message != "" {
		return fmt.Errorf("github api: %s (%s)", resp.Status, payload.Message)
	}
	return fmt.Errorf("github api: %s", resp.Status)
}

// despace removes the line breaks GitHub inserts into base64 payloads.
func despace(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n', '\r', ' ', '\t':
		default:
			buf = append(buf, s[i])
		}
	}
	return string(buf)
}
