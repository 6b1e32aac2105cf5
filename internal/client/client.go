// Package client talks to a running strongbox daemon over its HTTP API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/repo"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(addr string) *Client {
	baseURL := addr
	if !strings.Contains(baseURL, "://") {
		if strings.HasPrefix(baseURL, ":") {
			baseURL = "localhost" + baseURL
		}
		baseURL = "http://" + baseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type SearchParams struct {
	Query      string
	GroupID    string
	ArtifactID string
	Version    string
	Repository string
}

func (c *Client) Search(params SearchParams) (*index.Result, error) {
	values := url.Values{}
	if params.Query != "" {
		values.Set("q", params.Query)
	}
	if params.GroupID != "" {
		values.Set("g", params.GroupID)
	}
	if params.ArtifactID != "" {
		values.Set("a", params.ArtifactID)
	}
	if params.Version != "" {
		values.Set("v", params.Version)
	}
	if params.Repository != "" {
		values.Set("repository", params.Repository)
	}

	var result index.Result
	if err := c.get("/search?"+values.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Reindex(repository, path string) (string, error) {
	body := map[string]string{}
	if path != "" {
		body["path"] = path
	}
	return c.statusRequest(http.MethodPost, "/repositories/"+url.PathEscape(repository)+"/reindex", body)
}

func (c *Client) Sync(repository string) (string, error) {
	return c.statusRequest(http.MethodPost, "/repositories/"+url.PathEscape(repository)+"/sync", struct{}{})
}

func (c *Client) DeleteArtifacts(repository string, artifacts []artifact.ArtifactInfo) (string, error) {
	body := map[string]any{"artifacts": artifacts}
	return c.statusRequest(http.MethodDelete, "/repositories/"+url.PathEscape(repository)+"/artifacts", body)
}

func (c *Client) Stats() ([]repo.RepositoryStats, error) {
	var out struct {
		Repositories []repo.RepositoryStats `json:"repositories"`
	}
	if err := c.get("/stats", &out); err != nil {
		return nil, err
	}
	return out.Repositories, nil
}

func (c *Client) WatchStatus() (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get("/watch/status", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("service not running: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) statusRequest(method, path string, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("service not running: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status string `json:"status"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var problem struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &problem); err == nil && problem.Detail != "" {
			return fmt.Errorf("%s", problem.Detail)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return json.Unmarshal(raw, out)
}
