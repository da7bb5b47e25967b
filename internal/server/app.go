package server

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/hnrobert/vanconnect/internal/config"
	"github.com/hnrobert/vanconnect/internal/header"
	"github.com/hnrobert/vanconnect/internal/session"
	"github.com/hnrobert/vanconnect/internal/tabstore"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Header containers present on every page.
const (
	navContainer     = "main-nav"
	accountContainer = "account-box"
)

func newDocument() *header.Page {
	return header.NewPage(
		header.NewContainer(navContainer, "ul"),
		header.NewContainer(accountContainer, "div"),
	)
}

// LogoutPath is where the header's logout form posts.
const LogoutPath = "/logout"

type App struct {
	routes   config.Routes
	api      session.DataService
	tabs     tabstore.Backend
	settings *config.Store
	pages    map[string]*template.Template
}

// Options are the collaborators of an App.
type Options struct {
	Routes   config.Routes
	API      session.DataService
	Tabs     tabstore.Backend
	Settings *config.Store
}

type ViewData struct {
	Nav        template.HTML
	AccountBox template.HTML
	User       *session.User
	Routes     config.Routes
	Flash      string
	FlashKind  string // ok|warn|err|""

	// Form refills a rejected form. Passwords are never put back.
	Form map[string]string

	// Notice is the rendered landing notice, also previewed on the admin page.
	Notice template.HTML

	SignupClosed bool
	Settings     config.Settings
}

func NewApp(opts Options) (*App, error) {
	if opts.API == nil || opts.Tabs == nil || opts.Settings == nil {
		return nil, errors.New("server: API, Tabs and Settings are required")
	}

	pages := map[string]*template.Template{}
	for _, page := range []string{"index", "login", "register", "register_driver", "conta", "motorista", "admin"} {
		t, err := template.New("layout.html").ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, err
		}
		pages[page] = t
	}

	return &App{
		routes:   opts.Routes,
		api:      opts.API,
		tabs:     opts.Tabs,
		settings: opts.Settings,
		pages:    pages,
	}, nil
}

func (a *App) sessionConfig() session.Config {
	return session.Config{
		LoginPage:       a.routes.Login,
		LandingPage:     a.routes.Landing,
		DriverDashboard: a.routes.DriverDashboard,
		AdminDashboard:  a.routes.AdminDashboard,
		LogoutAction:    LogoutPath,
	}
}

// Handler returns the full HTTP surface of the front end.
func (a *App) Handler() http.Handler {
	pages := http.NewServeMux()
	pages.HandleFunc(a.routes.Landing, a.handleLanding)
	pages.HandleFunc(a.routes.Login, a.handleLogin)
	pages.HandleFunc(LogoutPath, a.handleLogout)
	pages.HandleFunc("/register", a.handleRegister)
	pages.HandleFunc("/register/driver", a.handleRegisterDriver)

	pages.HandleFunc("/conta", a.requireAuth(a.handleAccount))
	pages.HandleFunc(a.routes.DriverDashboard, a.requireRole(session.RoleDriver, a.handleDriverDashboard))
	pages.HandleFunc(a.routes.AdminDashboard, a.requireRole(session.RoleAdmin, a.handleAdmin))

	mux := http.NewServeMux()
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServerFS(static)))
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})
	mux.Handle("/", a.withTab(pages))
	return mux
}
