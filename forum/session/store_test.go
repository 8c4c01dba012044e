package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Brace1000/forum-client-go/forum/rest"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func TestStoreSaveLoadClear(t *testing.T) {
	s, _ := openTestStore(t)

	sess, err := s.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if sess.Authenticated {
		t.Fatalf("empty store must not be authenticated")
	}

	user := rest.User{ID: 7, Username: "alice", FirstName: "Alice"}
	if err := s.Save("tok", user); err != nil {
		t.Fatalf("save: %v", err)
	}
	sess, err = s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !sess.Authenticated || sess.Token != "tok" || sess.User.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	sess, _ = s.Load()
	if sess.Authenticated || sess.Token != "" {
		t.Fatalf("session survived clear: %+v", sess)
	}
}

func TestStoreSaveToken(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Save("old", rest.User{ID: 1, Username: "bob"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveToken("new"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	sess, _ := s.Load()
	if sess.Token != "new" || sess.User.Username != "bob" || !sess.Authenticated {
		t.Fatalf("unexpected session after token refresh: %+v", sess)
	}
}

func TestStoreFallbackTokenFile(t *testing.T) {
	s, dir := openTestStore(t)
	if err := s.Save("", rest.User{ID: 3, Username: "carol"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth_token"), []byte("side-tok\n"), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	sess, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.Token != "side-tok" {
		t.Fatalf("fallback token not picked up: %+v", sess)
	}
	if !sess.Authenticated {
		t.Fatalf("token plus stored user should authenticate")
	}
}

func TestStoreUserWithoutToken(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Save("", rest.User{ID: 3, Username: "carol"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sess, _ := s.Load()
	if sess.Authenticated {
		t.Fatalf("no token must mean not authenticated: %+v", sess)
	}
}
