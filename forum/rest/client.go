package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides REST API access to the forum server. The zero-dependency
// surface of the API lives at the server root ("/login", "/api/posts", ...),
// so baseURL is the server origin, e.g. "http://localhost:8080".
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a REST client with a cookie jar, since the server sets a
// session cookie alongside the bearer token.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// Login authenticates with a username-or-email identifier. Validation
// failures come back as FieldErrors.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	var resp LoginResponse
	req := LoginRequest{Identifier: identifier, Password: password}
	if err := c.postJSON(ctx, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. The endpoint consumes a multipart form;
// server-side validation failures come back as FieldErrors keyed by form
// field name.
func (c *Client) Register(ctx context.Context, form RegisterForm) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.postMultipart(ctx, "/register", form.Fields(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken exchanges the current token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.postJSON(ctx, "/api/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Categories lists the selectable post categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp []Category
	if err := c.get(ctx, "/api/categories", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Posts loads the feed. Unset filters are left out of the query string.
func (c *Client) Posts(ctx context.Context, filters PostFilters) ([]Post, error) {
	q := url.Values{}
	if filters.Category != "" {
		q.Set("category", filters.Category)
	}
	if filters.MyPostsOnly {
		q.Set("my_posts_only", "true")
	}
	if filters.LikedPostsOnly {
		q.Set("liked_posts_only", "true")
	}
	path := "/api/posts"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp []Post
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreatePost submits a new post as a multipart form.
func (c *Client) CreatePost(ctx context.Context, form CreatePostForm) (*StatusResponse, error) {
	fields := map[string]string{
		"title":   form.Title,
		"content": form.Content,
	}
	repeated := map[string][]string{"category": form.CategoryIDs}

	var resp StatusResponse
	if err := c.postMultipart(ctx, "/post/create", fields, repeated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateComment adds a comment to a post. The server responds with the full
// comment including the author's details.
func (c *Client) CreateComment(ctx context.Context, postID int, content string) (*Comment, error) {
	form := url.Values{}
	form.Set("post_id", strconv.Itoa(postID))
	form.Set("content", content)

	var resp Comment
	if err := c.postForm(ctx, "/comment/create", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleLike flips the like state of a post. The returned liked flag and
// count are authoritative; callers must not predict the result locally.
func (c *Client) ToggleLike(ctx context.Context, postID int) (*LikeResponse, error) {
	var resp LikeResponse
	if err := c.postJSON(ctx, fmt.Sprintf("/api/posts/%d/like", postID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OnlineUsers returns the current roster snapshot.
func (c *Client) OnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	var resp []OnlineUser
	if err := c.get(ctx, "/api/users/online", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// MessageHistory pages through the private conversation with another user,
// oldest first within a page. offset counts messages from the newest
// backwards.
func (c *Client) MessageHistory(ctx context.Context, userID, offset int) ([]HistoryMessage, error) {
	path := fmt.Sprintf("/api/messages/%d", userID)
	if offset > 0 {
		path += fmt.Sprintf("?offset=%d", offset)
	}
	var resp []HistoryMessage
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Helper methods

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, dest)
}

func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, repeated map[string][]string, dest any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("write form field: %w", err)
		}
	}
	for name, values := range repeated {
		for _, value := range values {
			if err := w.WriteField(name, value); err != nil {
				return fmt.Errorf("write form field: %w", err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}

	if dest != nil {
		ct := resp.Header.Get("Content-Type")
		if !strings.Contains(ct, "application/json") {
			return &APIError{Status: resp.StatusCode, Message: "response is not JSON"}
		}
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// decodeError turns a non-2xx body into a FieldErrors map when the server
// sent one, or a plain APIError otherwise.
func decodeError(status int, body []byte) error {
	var errResp struct {
		Errors  FieldErrors `json:"errors"`
		Message string      `json:"message"`
		Error   string      `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if len(errResp.Errors) > 0 {
			return errResp.Errors
		}
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg != "" {
			return &APIError{Status: status, Message: msg}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}
