// Package client is the HTTP implementation of the note-service call surface.
// It speaks the server's JSON envelope and carries the bearer and CSRF tokens
// on every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nota/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	accessToken string
	csrfToken   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s", msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	req := domain.RegisterRequest{Username: username, Password: password}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, nil)
}

// Login authenticates and stores the bearer and CSRF tokens for all
// subsequent calls on this client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req := domain.LoginRequest{Username: username, Password: password}
	var resp domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return err
	}
	c.accessToken = resp.AccessToken
	c.csrfToken = resp.CSRFToken
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.accessToken = ""
	c.csrfToken = ""
	return err
}

func (c *Client) Session(ctx context.Context) (*domain.SessionResponse, error) {
	var sess domain.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) Fetch(ctx context.Context) ([]*domain.Note, error) {
	var out struct {
		Notes []*domain.Note `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/notes", nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

func (c *Client) Create(ctx context.Context, req *domain.CreateNoteRequest) (*domain.Note, error) {
	var out struct {
		Note *domain.Note `json:"note"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/notes", req, &out); err != nil {
		return nil, err
	}
	return out.Note, nil
}

func (c *Client) Update(ctx context.Context, noteID string, req *domain.UpdateNoteRequest) error {
	return c.do(ctx, http.MethodPut, "/api/v1/notes/"+noteID, req, nil)
}

func (c *Client) UpdateMeta(ctx context.Context, noteID string, req *domain.UpdateNoteMetaRequest) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/notes/"+noteID, req, nil)
}

func (c *Client) Delete(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notes/"+noteID, nil, nil)
}

func (c *Client) TogglePublic(ctx context.Context, noteID string, public bool) (*domain.Note, error) {
	var out struct {
		Note *domain.Note `json:"note"`
	}
	req := domain.TogglePublicRequest{Public: public}
	if err := c.do(ctx, http.MethodPost, "/api/v1/notes/"+noteID+"/share", req, &out); err != nil {
		return nil, err
	}
	return out.Note, nil
}

func (c *Client) History(ctx context.Context, noteID string) ([]*domain.VersionSummary, error) {
	var out struct {
		Versions []*domain.VersionSummary `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/notes/"+noteID+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

func (c *Client) Restore(ctx context.Context, noteID, versionID string) error {
	req := domain.RestoreRequest{VersionID: versionID}
	return c.do(ctx, http.MethodPost, "/api/v1/notes/"+noteID+"/restore", req, nil)
}

func (c *Client) Export(ctx context.Context) (*domain.ExportPayload, error) {
	var payload domain.ExportPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/notes/export", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) Import(ctx context.Context, payload *domain.ImportPayload) (*domain.ImportResult, error) {
	var result domain.ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/notes/import", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PublicNote(ctx context.Context, token string) (*domain.PublicNote, error) {
	var out struct {
		Note *domain.PublicNote `json:"note"`
	}
	if err := c.do(ctx, http.MethodGet, "/public/"+token, nil, &out); err != nil {
		return nil, err
	}
	return out.Note, nil
}
