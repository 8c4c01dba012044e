// Package session persists authentication state across runs and drives the
// login/logout lifecycle, including chat client startup and teardown.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Brace1000/forum-client-go/forum/rest"

	bolt "go.etcd.io/bbolt"
)

var bucketSession = []byte("session")

const (
	keyAuthenticated = "isAuthenticated"
	keyToken         = "auth_token"
	keyUser          = "user"

	// tokenFallbackFile is consulted when the store has no token, the same
	// way the browser client falls back to a cookie.
	tokenFallbackFile = "auth_token"
)

// Session is the durable authentication state.
type Session struct {
	Authenticated bool
	Token         string
	User          rest.User
}

// Store is a bbolt-backed key/value store for session state, held in the
// user's data directory so a restart picks the session back up.
type Store struct {
	db  *bolt.DB
	dir string
}

// Open opens (or creates) the session database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, "session.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session bucket: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a freshly authenticated session.
func (s *Store) Save(token string, user rest.User) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put([]byte(keyAuthenticated), []byte("true")); err != nil {
			return err
		}
		if err := b.Put([]byte(keyToken), []byte(token)); err != nil {
			return err
		}
		return b.Put([]byte(keyUser), blob)
	})
}

// SaveToken replaces just the token, keeping the user record. Used after a
// refresh.
func (s *Store) SaveToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Put([]byte(keyToken), []byte(token))
	})
}

// Load returns the stored session. A missing or partial session comes back
// with Authenticated=false and no error.
func (s *Store) Load() (Session, error) {
	var sess Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		sess.Authenticated = string(b.Get([]byte(keyAuthenticated))) == "true"
		sess.Token = string(b.Get([]byte(keyToken)))
		if blob := b.Get([]byte(keyUser)); blob != nil {
			if err := json.Unmarshal(blob, &sess.User); err != nil {
				return fmt.Errorf("unmarshal user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if sess.Token == "" {
		if tok := s.fallbackToken(); tok != "" {
			sess.Token = tok
		}
	}
	if sess.Token == "" || sess.User.ID == 0 {
		sess.Authenticated = false
	}
	return sess, nil
}

// Clear wipes the session. Callers must tear the chat connection down
// first so it can still send a clean close from cached state.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Delete([]byte(keyAuthenticated)); err != nil {
			return err
		}
		if err := b.Delete([]byte(keyToken)); err != nil {
			return err
		}
		return b.Delete([]byte(keyUser))
	})
}

// fallbackToken reads a sidecar token file dropped next to the database, for
// sessions established outside this client.
func (s *Store) fallbackToken() string {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFallbackFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
