// Package tabstore provides the tab-scoped storage behind session.Store for
// the web server.
//
// Every backend keys the storage on a cookie without Max-Age, so it lives as
// long as the browser session and no longer. The cookie backend carries the
// values themselves, signed; the redis and memory backends carry only a
// random tab id.
package tabstore

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hnrobert/vanconnect/internal/session"
)

// Backend opens the storage of the tab making request r. Stores returned by
// Open may write cookies to w, so Open and every mutation must happen before
// the response is written.
type Backend interface {
	Open(w http.ResponseWriter, r *http.Request) (session.Store, error)
	Close() error
}

// setCookie replaces any Set-Cookie for the same name already queued on w.
func setCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="
	kept := h["Set-Cookie"][:0]
	for _, v := range h["Set-Cookie"] {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
	} else {
		h["Set-Cookie"] = kept
	}
	http.SetCookie(w, c)
}

func sessionCookie(name, value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}

// tabID returns the tab id carried by the request, issuing a new one when the
// cookie is missing or malformed.
func tabID(w http.ResponseWriter, r *http.Request, cookieName string, secure bool) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	setCookie(w, sessionCookie(cookieName, id, secure))
	return id
}
