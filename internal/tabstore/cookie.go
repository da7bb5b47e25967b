package tabstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hnrobert/vanconnect/internal/auth"
	"github.com/hnrobert/vanconnect/internal/logger"
	"github.com/hnrobert/vanconnect/internal/session"
)

// maxCookieSize is the smallest per-cookie limit browsers enforce on the
// whole Set-Cookie value. Larger cookies are silently dropped.
const maxCookieSize = 4096

// ErrCookieTooLarge is returned by a cookie-backed store when a write would
// not fit in one cookie. Use the memory or redis backend for larger records.
var ErrCookieTooLarge = errors.New("tab storage does not fit in a cookie")

// CookieBackend keeps the whole tab storage in a signed session cookie.
type CookieBackend struct {
	name   string
	secret []byte
	secure bool
	ttl    time.Duration
}

// NewCookieBackend signs values with secret. ttl bounds how long a signed
// value stays valid; zero means only the browser session bounds it.
func NewCookieBackend(name string, secret []byte, secure bool, ttl time.Duration) *CookieBackend {
	return &CookieBackend{name: name, secret: secret, secure: secure, ttl: ttl}
}

func (b *CookieBackend) Open(w http.ResponseWriter, r *http.Request) (session.Store, error) {
	vals := map[string]string{}
	if c, err := r.Cookie(b.name); err == nil && c.Value != "" {
		cl, err := auth.ParseHS256(b.secret, c.Value)
		if err != nil {
			logger.Debug("tabstore: dropping unverifiable cookie: %v", err)
		} else {
			vals = cl.Values
		}
	}
	return &cookieStore{b: b, w: w, vals: vals}, nil
}

func (b *CookieBackend) Close() error { return nil }

type cookieStore struct {
	b    *CookieBackend
	w    http.ResponseWriter
	vals map[string]string
}

func (s *cookieStore) Get(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

func (s *cookieStore) Set(key, value string) error {
	prev, had := s.vals[key]
	s.vals[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.vals[key] = prev
		} else {
			delete(s.vals, key)
		}
		return err
	}
	return nil
}

func (s *cookieStore) Remove(key string) error {
	if _, ok := s.vals[key]; !ok {
		return nil
	}
	delete(s.vals, key)
	return s.flush()
}

func (s *cookieStore) Clear() error {
	s.vals = map[string]string{}
	return s.flush()
}

func (s *cookieStore) flush() error {
	if len(s.vals) == 0 {
		c := sessionCookie(s.b.name, "", s.b.secure)
		c.MaxAge = -1
		setCookie(s.w, c)
		return nil
	}
	tok, err := auth.SignHS256(s.b.secret, s.vals, s.b.ttl)
	if err != nil {
		return err
	}
	c := sessionCookie(s.b.name, tok, s.b.secure)
	if n := len(c.String()); n > maxCookieSize {
		return fmt.Errorf("%w: %d bytes", ErrCookieTooLarge, n)
	}
	setCookie(s.w, c)
	return nil
}
