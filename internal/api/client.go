// Package api is a typed client for the Aura REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aura.app/internal/gateway"
)

// Client calls the Aura API through a gateway.
type Client struct {
	gw *gateway.Gateway
}

func NewClient(gw *gateway.Gateway) *Client { return &Client{gw: gw} }

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway { return c.gw }

// Login exchanges credentials for a token. Credentials go form-encoded as
// username/password.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	resp, err := c.gw.Public(ctx, "/login", gateway.Options{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Body:   strings.NewReader(form.Encode()),
	})
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return Token{}, decodeError(resp, "Login failed")
	}
	var tok Token
	if err := decodeBody(resp, &tok); err != nil {
		return Token{}, err
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return Token{}, &Error{Status: resp.StatusCode, Detail: "Login failed"}
	}
	return tok, nil
}

// Register creates an account. The API answers without a token.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	resp, err := c.gw.Public(ctx, "/register", gateway.Options{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, "Registration failed")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.getJSON(ctx, "/projects", "Could not fetch projects.", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, name, target string) (Project, error) {
	body, err := jsonBody(map[string]string{"projectName": name, "url": target})
	if err != nil {
		return Project{}, err
	}
	resp, err := c.gw.Call(ctx, "/projects", gateway.Options{Method: http.MethodPost, Body: body})
	if err != nil {
		return Project{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return Project{}, decodeError(resp, "Could not create project.")
	}
	var p Project
	if err := decodeBody(resp, &p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var p Project
	if err := c.getJSON(ctx, "/projects/"+url.PathEscape(id), "Could not fetch project details.", &p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, "/projects/"+url.PathEscape(id), "Failed to delete project.")
}

// History lists a project's scans, newest first.
func (c *Client) History(ctx context.Context, projectID string) ([]Scan, error) {
	var out []Scan
	endpoint := "/projects/" + url.PathEscape(projectID) + "/history"
	if err := c.getJSON(ctx, endpoint, "Could not fetch scan history.", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartScan runs a scan synchronously on the server and returns the stored result.
func (c *Client) StartScan(ctx context.Context, projectID string) (Scan, error) {
	resp, err := c.gw.Call(ctx, "/scan/"+url.PathEscape(projectID), gateway.Options{Method: http.MethodPost})
	if err != nil {
		return Scan{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return Scan{}, decodeError(resp, "Scan failed.")
	}
	var s Scan
	if err := decodeBody(resp, &s); err != nil {
		return Scan{}, err
	}
	if s.ID == "" {
		return Scan{}, &Error{Status: resp.StatusCode, Detail: "Scan result is missing its identifier."}
	}
	return s, nil
}

func (c *Client) GetScan(ctx context.Context, scanID string) (Scan, error) {
	var s Scan
	if err := c.getJSON(ctx, "/scan/results/"+url.PathEscape(scanID), "Could not fetch scan results.", &s); err != nil {
		return Scan{}, err
	}
	return s, nil
}

func (c *Client) DeleteScan(ctx context.Context, scanID string) error {
	return c.delete(ctx, "/scan/results/"+url.PathEscape(scanID), "Failed to delete scan.")
}

// Health pings the API's unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.gw.Public(ctx, "/health", gateway.Options{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if !ok(resp) {
		return &Error{Status: resp.StatusCode, Detail: "API is not healthy"}
	}
	return nil
}

// Helpers -----------------------------------------------------------------

func (c *Client) getJSON(ctx context.Context, endpoint, fallback string, v any) error {
	resp, err := c.gw.Call(ctx, endpoint, gateway.Options{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, fallback)
	}
	return decodeBody(resp, v)
}

func (c *Client) delete(ctx context.Context, endpoint, fallback string) error {
	resp, err := c.gw.Call(ctx, endpoint, gateway.Options{Method: http.MethodDelete})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, fallback)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func decodeBody(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// WithTimeout returns a context bounded by d; d <= 0 means no bound.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
