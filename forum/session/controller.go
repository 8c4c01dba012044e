package session

import (
	"context"
	"sync"
	"time"

	"github.com/Brace1000/forum-client-go/forum"
	"github.com/Brace1000/forum-client-go/forum/rest"

	"github.com/golang-jwt/jwt"
)

// refreshLeeway is how long before token expiry the refresh call goes out.
const refreshLeeway = time.Minute

// Controller owns the authenticated session: it drives login, registration
// and logout against the REST API, persists the session in the Store, and
// starts/stops the chat client as the session comes and goes.
type Controller struct {
	api    *rest.Client
	store  *Store
	wsURL  string
	base   forum.Config
	logger forum.Logger

	// OnChatReady fires after a successful handshake once the roster
	// snapshot has been loaded.
	OnChatReady func()

	// OnForcedLogout fires when the server rejects the chat handshake and
	// the session has been torn down.
	OnForcedLogout func(message string)

	mu      sync.Mutex
	chat    *forum.Client
	cached  Session
	refresh *time.Timer
}

// NewController wires a REST client, a session store and the chat endpoint
// together. base carries chat client defaults; URL, user id and token are
// filled in per session.
func NewController(api *rest.Client, store *Store, wsURL string, base forum.Config) *Controller {
	return &Controller{
		api:    api,
		store:  store,
		wsURL:  wsURL,
		base:   base,
		logger: forum.NopLogger(),
	}
}

// SetLogger overrides the logger (optional).
func (c *Controller) SetLogger(l forum.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Chat returns the current chat client, or nil when logged out.
func (c *Controller) Chat() *forum.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chat
}

// Session returns the cached session state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

// Resume restores a persisted session on startup. It reports whether a
// usable session was found; when it was, the chat client is already
// starting.
func (c *Controller) Resume(ctx context.Context) (bool, error) {
	sess, err := c.store.Load()
	if err != nil {
		return false, err
	}
	if !sess.Authenticated {
		return false, nil
	}
	c.api.SetToken(sess.Token)
	c.establish(ctx, sess)
	return true, nil
}

// Login authenticates, persists the session and starts the chat client.
// Validation failures are returned as rest.FieldErrors; nothing here ever
// panics through to the caller.
func (c *Controller) Login(ctx context.Context, identifier, password string) (*rest.User, error) {
	errs := rest.FieldErrors{}
	if identifier == "" {
		errs["identifier"] = "Please enter your username or email"
	}
	if password == "" {
		errs["password"] = "Please enter your password"
	}
	if len(errs) > 0 {
		return nil, errs
	}

	resp, err := c.api.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if !resp.Success || !resp.Authenticated || resp.User == nil {
		return nil, rest.FieldErrors{"password": "Authentication failed"}
	}

	if err := c.store.Save(resp.Token, *resp.User); err != nil {
		return nil, err
	}
	c.api.SetToken(resp.Token)
	c.establish(ctx, Session{Authenticated: true, Token: resp.Token, User: *resp.User})
	return resp.User, nil
}

// Register validates the form locally, then submits it. Server-side field
// errors are passed through as rest.FieldErrors.
func (c *Controller) Register(ctx context.Context, form rest.RegisterForm) (*rest.StatusResponse, error) {
	if errs := ValidateRegisterForm(form); errs != nil {
		return nil, errs
	}
	return c.api.Register(ctx, form)
}

// Logout tears the session down. The chat connection is closed first so the
// clean close (code 1000) goes out from cached state; only then is the
// stored session cleared.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	chat := c.chat
	c.chat = nil
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
	c.cached = Session{}
	c.mu.Unlock()

	if chat != nil {
		if err := chat.Close(); err != nil {
			c.logger.Warn("chat close failed", map[string]any{"error": err.Error()})
		}
	}

	c.api.SetToken("")
	return c.store.Clear()
}

// establish builds and starts the chat client for an authenticated session.
func (c *Controller) establish(ctx context.Context, sess Session) {
	cfg := c.base
	cfg.URL = c.wsURL
	cfg.UserID = sess.User.ID
	cfg.Token = sess.Token

	chat := forum.NewClient(cfg)
	chat.SetLogger(c.logger)
	chat.OnAuthSuccess(func() { c.loadRoster() })
	chat.OnAuthError(func(message string) { c.forceLogout(message) })

	c.mu.Lock()
	c.chat = chat
	c.cached = sess
	c.mu.Unlock()

	if err := chat.Start(ctx); err != nil {
		c.logger.Warn("chat start failed", map[string]any{"error": err.Error()})
	}
	c.scheduleRefresh(sess.Token)
}

// loadRoster fetches the online-users snapshot right after authentication.
func (c *Controller) loadRoster() {
	chat := c.Chat()
	if chat == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	users, err := c.api.OnlineUsers(ctx)
	if err != nil {
		c.logger.Warn("roster load failed", map[string]any{"error": err.Error()})
	} else {
		entries := make([]forum.UserEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, forum.UserEntry{
				ID:          u.ID,
				Username:    u.Username,
				IsOnline:    u.IsOnline,
				LastMessage: u.LastMessage,
			})
		}
		chat.Roster().Replace(entries)
	}

	if c.OnChatReady != nil {
		c.OnChatReady()
	}
}

// forceLogout runs when the server rejects the chat handshake.
func (c *Controller) forceLogout(message string) {
	c.logger.Warn("chat handshake rejected, logging out", map[string]any{"message": message})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Logout(ctx); err != nil {
		c.logger.Error("forced logout failed", map[string]any{"error": err.Error()})
	}
	if c.OnForcedLogout != nil {
		c.OnForcedLogout(message)
	}
}

// scheduleRefresh arranges a token refresh shortly before the current token
// expires. Tokens without an exp claim are left alone.
func (c *Controller) scheduleRefresh(token string) {
	exp := tokenExpiry(token)
	if exp.IsZero() {
		return
	}
	delay := time.Until(exp) - refreshLeeway
	if delay < time.Second {
		delay = time.Second
	}

	c.mu.Lock()
	if c.refresh != nil {
		c.refresh.Stop()
	}
	c.refresh = time.AfterFunc(delay, c.refreshToken)
	c.mu.Unlock()
}

func (c *Controller) refreshToken() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.api.RefreshToken(ctx)
	if err != nil || resp.Token == "" {
		c.logger.Warn("token refresh failed", map[string]any{"error": errString(err)})
		return
	}
	if err := c.store.SaveToken(resp.Token); err != nil {
		c.logger.Warn("token persist failed", map[string]any{"error": err.Error()})
	}
	c.api.SetToken(resp.Token)

	c.mu.Lock()
	c.cached.Token = resp.Token
	chat := c.chat
	c.mu.Unlock()
	if chat != nil {
		chat.SetToken(resp.Token)
	}
	c.scheduleRefresh(resp.Token)
}

// tokenExpiry decodes the exp claim without verifying the signature; the
// client never holds the signing secret.
func tokenExpiry(token string) time.Time {
	claims := &jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(claims.ExpiresAt, 0)
}

func errString(err error) string {
	if err == nil {
		return "empty token"
	}
	return err.Error()
}
