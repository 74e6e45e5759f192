package session

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"aura.app/internal/platform"
)

const (
	cookieName   = "aura_session"
	cookieMaxAge = 30 * 24 * 60 * 60
	hkdfSalt     = "aura-console-session"
)

// CookieJar issues per-request Storage backed by a signed, encrypted cookie.
type CookieJar struct {
	store *sessions.CookieStore
}

// NewCookieJar derives cookie hash and block keys from secret. An empty
// secret gets random keys, so sessions do not survive a restart.
func NewCookieJar(secret string, secure bool) (*CookieJar, error) {
	master := []byte(secret)
	if len(master) == 0 {
		master = make([]byte, 32)
		if _, err := rand.Read(master); err != nil {
			return nil, fmt.Errorf("session: random secret: %w", err)
		}
	}
	hashKey, err := deriveKey(master, "cookie-hash", 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(master, "cookie-block", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieJar{store: store}, nil
}

func deriveKey(master []byte, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	r := hkdf.New(sha256.New, master, []byte(hkdfSalt), []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("session: derive %s key: %w", info, err)
	}
	return key, nil
}

// Storage binds the jar to one request/response pair. Set and Remove write
// the Set-Cookie header, so they must run before the response body.
func (j *CookieJar) Storage(w http.ResponseWriter, r *http.Request) platform.Storage {
	return &cookieStorage{store: j.store, w: w, r: r}
}

type cookieStorage struct {
	store *sessions.CookieStore
	w     http.ResponseWriter
	r     *http.Request
}

func (c *cookieStorage) session() *sessions.Session {
	// A cookie that fails to decode yields a fresh session; treat it as empty.
	sess, _ := c.store.Get(c.r, cookieName)
	return sess
}

func (c *cookieStorage) Get(key string) (string, bool) {
	v, ok := c.session().Values[key].(string)
	return v, ok
}

func (c *cookieStorage) Set(key, value string) error {
	sess := c.session()
	sess.Values[key] = value
	sess.Options.MaxAge = cookieMaxAge
	return sess.Save(c.r, c.w)
}

func (c *cookieStorage) Remove(key string) error {
	sess := c.session()
	delete(sess.Values, key)
	if len(sess.Values) == 0 {
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.r, c.w)
}
