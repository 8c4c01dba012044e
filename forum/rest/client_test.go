package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Identifier != "alice" || req.Password != "secret" {
			t.Errorf("unexpected credentials: %+v", req)
		}
		jsonResponse(w, http.StatusOK, LoginResponse{
			Success: true, Authenticated: true, Token: "tok",
			User: &User{ID: 1, Username: "alice"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok" || resp.User == nil || resp.User.ID != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLoginFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"errors": map[string]string{"password": "Invalid password"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), "alice", "wrong")
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fieldErrs["password"] != "Invalid password" {
		t.Fatalf("unexpected field errors: %v", fieldErrs)
	}
}

func TestRegisterMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("confirmpassword"); got != "secret" {
			t.Errorf("confirmpassword = %q", got)
		}
		if got := r.FormValue("firstname"); got != "Alice" {
			t.Errorf("firstname = %q", got)
		}
		jsonResponse(w, http.StatusCreated, StatusResponse{Success: true, Message: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Register(context.Background(), RegisterForm{
		Username: "alice", Email: "a@example.com",
		Password: "secret", ConfirmPassword: "secret",
		FirstName: "Alice", LastName: "Ng", Age: "30", Gender: "female",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPostsFilterQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonResponse(w, http.StatusOK, []Post{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Posts(context.Background(), PostFilters{}); err != nil {
		t.Fatalf("posts: %v", err)
	}
	if gotQuery != "" {
		t.Fatalf("unset filters must not appear in the query, got %q", gotQuery)
	}

	if _, err := c.Posts(context.Background(), PostFilters{Category: "3", LikedPostsOnly: true}); err != nil {
		t.Fatalf("posts: %v", err)
	}
	if gotQuery != "category=3&liked_posts_only=true" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestCreatePostRepeatedCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		cats := r.MultipartForm.Value["category"]
		if len(cats) != 2 || cats[0] != "1" || cats[1] != "4" {
			t.Errorf("unexpected categories %v", cats)
		}
		jsonResponse(w, http.StatusCreated, StatusResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreatePost(context.Background(), CreatePostForm{
		Title: "t", Content: "c", CategoryIDs: []string{"1", "4"},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
}

func TestCreateComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comment/create" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("post_id") != "9" || r.FormValue("content") != "nice post" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		jsonResponse(w, http.StatusCreated, Comment{
			CommentID: 12, PostID: 9, UserID: 1, Content: "nice post",
			Author: "alice", FirstName: "Alice", LastName: "Ng",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	comment, err := c.CreateComment(context.Background(), 9, "nice post")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.CommentID != 12 || comment.AuthorName() != "Alice Ng" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
}

func TestCreateCommentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Content cannot be empty"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreateComment(context.Background(), 9, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Content cannot be empty" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		jsonResponse(w, http.StatusOK, LikeResponse{Liked: true, LikeCount: 3})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("tok123")
	resp, err := c.ToggleLike(context.Background(), 9)
	if err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if !resp.Liked || resp.LikeCount != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMessageHistoryOffset(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		jsonResponse(w, http.StatusOK, []HistoryMessage{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.MessageHistory(context.Background(), 7, 0); err != nil {
		t.Fatalf("history: %v", err)
	}
	if gotPath != "/api/messages/7" || gotQuery != "" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}

	if _, err := c.MessageHistory(context.Background(), 7, 50); err != nil {
		t.Fatalf("history: %v", err)
	}
	if gotQuery != "offset=50" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>login page</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Categories(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestErrorBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("something broke"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Categories(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "something broke" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}
