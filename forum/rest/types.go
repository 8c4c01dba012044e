package rest

import (
	"fmt"
	"sort"
	"strings"
)

// User is the authenticated user record returned by the login endpoint.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the request body for POST /login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is the success body of POST /login.
type LoginResponse struct {
	Success       bool   `json:"success"`
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token"`
	User          *User  `json:"user"`
}

// RegisterForm holds the multipart fields for POST /register. Age stays a
// string because it travels as a form field.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Age             string
	Gender          string
}

// Fields returns the form in wire order with the server's field names.
func (f RegisterForm) Fields() map[string]string {
	return map[string]string{
		"username":        f.Username,
		"email":           f.Email,
		"password":        f.Password,
		"confirmpassword": f.ConfirmPassword,
		"firstname":       f.FirstName,
		"lastname":        f.LastName,
		"age":             f.Age,
		"gender":          f.Gender,
	}
}

// StatusResponse is the generic {success, message} body.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Category is one selectable post category.
type Category struct {
	ID          int    `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Post is a feed entry. Server-owned and read-only on the client.
type Post struct {
	PostID       int    `json:"post_id"`
	UserID       int    `json:"user_id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CreatedAt    string `json:"created_at"`
	Categories   string `json:"categories"` // comma-joined
	LikeCount    int    `json:"like_count"`
	UserLiked    bool   `json:"user_liked"`
	CommentCount int    `json:"comment_count"`
	ImageURL     string `json:"image_url,omitempty"`
}

// CategoryList splits the comma-joined categories field.
func (p Post) CategoryList() []string {
	if p.Categories == "" {
		return nil
	}
	parts := strings.Split(p.Categories, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AuthorName joins the author's first and last name.
func (p Post) AuthorName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return fmt.Sprintf("User %d", p.UserID)
	}
	return name
}

// PostFilters narrows the feed query. Zero values are omitted from the query
// string entirely rather than sent as false or empty.
type PostFilters struct {
	Category       string
	MyPostsOnly    bool
	LikedPostsOnly bool
}

// CreatePostForm holds the multipart fields for POST /post/create.
type CreatePostForm struct {
	Title       string
	Content     string
	CategoryIDs []string
}

// Comment is one comment on a post. The create endpoint answers with the
// full row including author details and reaction counts.
type Comment struct {
	CommentID    int    `json:"comment_id"`
	PostID       int    `json:"post_id"`
	UserID       int    `json:"user_id"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
	Author       string `json:"author"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Likes        int    `json:"likes"`
	Dislikes     int    `json:"dislikes"`
	UserReaction string `json:"user_reaction"`
}

// AuthorName joins the commenter's first and last name, falling back to the
// username.
func (c Comment) AuthorName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Author
	}
	return name
}

// LikeResponse is the body of POST /api/posts/{id}/like. The UI applies it
// as-is instead of predicting the toggle locally.
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// OnlineUser is one row of GET /api/users/online.
type OnlineUser struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	IsOnline    bool   `json:"isOnline"`
	LastMessage string `json:"lastMessage,omitempty"`
}

// HistoryMessage is one row of GET /api/messages/{userId}.
type HistoryMessage struct {
	ID         int    `json:"id"`
	SenderID   int    `json:"senderId"`
	ReceiverID int    `json:"receiverId"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

// RefreshResponse is the body of POST /api/auth/refresh.
type RefreshResponse struct {
	Token string `json:"token"`
}

// FieldErrors maps form field names to validation messages, as returned by
// the login and register endpoints.
type FieldErrors map[string]string

// Error implements the error interface with a stable field order.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// APIError is a non-2xx response that did not carry field errors.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}
