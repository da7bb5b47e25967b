package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/hnrobert/vanconnect/internal/logger"
	"github.com/hnrobert/vanconnect/internal/session"
)

type ctxKey string

const ctxTab ctxKey = "tab"

// navigator records where the session manager wants the tab to go. The
// handler turns that into a redirect once the manager call returns.
type navigator struct {
	location string
	target   string
}

func (n *navigator) Location() string { return n.location }

func (n *navigator) Navigate(path string) { n.target = path }

// tab is the per-request view of the browser tab.
type tab struct {
	store session.Store
	nav   *navigator
	m     *session.Manager
}

// follow redirects to the last navigation target. It reports false when the
// manager did not navigate.
func (t *tab) follow(w http.ResponseWriter, r *http.Request) bool {
	if t.nav.target == "" {
		return false
	}
	http.Redirect(w, r, t.nav.target, http.StatusSeeOther)
	return true
}

func (a *App) withTab(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, err := a.tabs.Open(w, r)
		if err != nil {
			logger.Error("open tab storage for %s: %v", remoteIP(r), err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		nav := &navigator{location: r.URL.RequestURI()}
		t := &tab{store: store, nav: nav, m: session.NewManager(a.sessionConfig(), a.api, store, nav)}

		if _, err := t.m.CurrentUser(); errors.Is(err, session.ErrCorruptSession) {
			logger.Warn("Dropping corrupt session from %s: %v", remoteIP(r), err)
			if err := store.Clear(); err != nil {
				logger.Error("clear corrupt session: %v", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxTab, t)))
	})
}

func tabFrom(r *http.Request) *tab {
	t, _ := r.Context().Value(ctxTab).(*tab)
	return t
}

func (a *App) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := tabFrom(r)
		if !t.m.ProtectPage() {
			t.follow(w, r)
			return
		}
		h(w, r)
	}
}

func (a *App) requireRole(role session.Role, h http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		u, err := tabFrom(r).m.CurrentUser()
		if err != nil || u == nil || u.Role != role {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		h(w, r)
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
