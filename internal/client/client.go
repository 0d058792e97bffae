// Package client is the sync adapter for one session viewing one note: it
// issues mutations over REST, announces the canonical results over the
// collab websocket, and merges announcements from other sessions into a
// local ordered block list.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"collabnote-backend/internal/model"
)

// APIError is a structured error response from the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is a minimal REST client for the notes API. Auth cookies are kept
// in the jar, so a Login call authenticates all subsequent requests.
type Client struct {
	baseURL string
	http    *http.Client

	accessToken string
}

// New creates a Client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
}

// Register creates an account and stores the session cookies.
func (c *Client) Register(email, password string) error {
	return c.authenticate("/auth/register", email, password)
}

// Login authenticates and stores the session cookies.
func (c *Client) Login(email, password string) error {
	return c.authenticate("/auth/login", email, password)
}

func (c *Client) authenticate(path, email, password string) error {
	var resp authResponse
	if err := c.do(http.MethodPost, path, authRequest{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	c.accessToken = resp.AccessToken
	return nil
}

// AccessToken returns the token captured at login, used as the websocket
// upgrade cookie.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// CreateNote creates a note.
func (c *Client) CreateNote(title string) (*model.Note, error) {
	var note model.Note
	err := c.do(http.MethodPost, "/api/notes", map[string]string{"title": title}, &note)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// Blocks fetches the note's blocks ordered by order_index.
func (c *Client) Blocks(noteID int64) ([]model.Block, error) {
	var blocks []model.Block
	err := c.do(http.MethodGet, fmt.Sprintf("/api/notes/%d/blocks", noteID), nil, &blocks)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// CreateBlockRequest is the create payload.
type CreateBlockRequest struct {
	Type       model.BlockType `json:"type"`
	Content    string          `json:"content"`
	OrderIndex int             `json:"order_index"`
	ParentID   *int64          `json:"parent_id,omitempty"`
}

// UpdateBlockRequest is the partial-update payload.
type UpdateBlockRequest struct {
	Type              *model.BlockType `json:"type,omitempty"`
	Content           *string          `json:"content,omitempty"`
	OrderIndex        *int             `json:"order_index,omitempty"`
	ExpectedUpdatedAt *string          `json:"expected_updated_at,omitempty"`
}

// BlockOrder is one (id, order_index) pair of a reorder batch.
type BlockOrder struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

// CreateBlock creates a block under the note.
func (c *Client) CreateBlock(noteID int64, req CreateBlockRequest) (*model.Block, error) {
	var block model.Block
	err := c.do(http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", noteID), req, &block)
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// UpdateBlock applies a partial update.
func (c *Client) UpdateBlock(noteID, blockID int64, req UpdateBlockRequest) (*model.Block, error) {
	var block model.Block
	err := c.do(http.MethodPatch, fmt.Sprintf("/api/notes/%d/blocks/%d", noteID, blockID), req, &block)
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// DeleteBlock removes a block.
func (c *Client) DeleteBlock(noteID, blockID int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/notes/%d/blocks/%d", noteID, blockID), nil, nil)
}

// ReorderBlocks submits a reorder batch.
func (c *Client) ReorderBlocks(noteID int64, pairs []BlockOrder) error {
	body := map[string][]BlockOrder{"blocks": pairs}
	return c.do(http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks/reorder", noteID), body, nil)
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
