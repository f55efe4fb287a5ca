// Package neon manages per-project Postgres databases through the Neon
// REST API v2. A provisioned database's connection string is injected
// into function sandboxes as DATABASE_URL at execution time.
package neon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	apiBase = "https://console.neon.tech/api/v2"

	defaultDatabase = "neondb"
	defaultRole     = "neondb_owner"
)

// Client is a Neon API v2 client.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Client. The key may be empty; Configured reports
// whether provisioning calls can be made.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: apiBase,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Database is a provisioned Neon project: its ID and the connection
// string for the default database.
type Database struct {
	ProjectID     string
	ConnectionURI string
}

// Provision creates a Neon project named "clowdy-{name}" and returns
// its ID and the connection URI for the default database and role.
func (c *Client) Provision(ctx context.Context, name string) (Database, error) {
	body, _ := json.Marshal(map[string]any{
		"project": map[string]any{"name": "clowdy-" + name},
	})

	var created struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	if err := c.do(ctx, "POST", "/projects", bytes.NewReader(body), &created); err != nil {
		return Database{}, err
	}

	var conn struct {
		URI string `json:"uri"`
	}
	path := fmt.Sprintf("/projects/%s/connection_uri?database_name=%s&role_name=%s",
		created.Project.ID, defaultDatabase, defaultRole)
	if err := c.do(ctx, "GET", path, nil, &conn); err != nil {
		return Database{}, err
	}

	return Database{ProjectID: created.Project.ID, ConnectionURI: conn.URI}, nil
}

// Deprovision deletes a Neon project.
func (c *Client) Deprovision(ctx context.Context, neonProjectID string) error {
	return c.do(ctx, "DELETE", "/projects/"+neonProjectID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("neon API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("neon API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// MaskConnectionString replaces the password in a Postgres connection
// string with "***". Strings without a password pass through unchanged.
func MaskConnectionString(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, has := u.User.Password(); !has {
		return rawURL
	}

	u.User = url.UserPassword(u.User.Username(), "***")
	return u.String()
}
