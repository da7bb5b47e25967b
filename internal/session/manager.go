// Package session owns the VanConnect tab session: login, registration,
// logout, page protection, role based redirects and the site header.
//
// A Manager works over one tab's Store and Navigator. The web server builds
// one per request; nothing in a Manager outlives the request.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/header"
	"github.com/hnrobert/vanconnect/internal/logger"
)

// ErrCorruptSession is returned when the stored session record is present
// but cannot be decoded.
var ErrCorruptSession = errors.New("stored session record is corrupt")

const secretField = "senha"

// DataService is the subset of the data service the manager talks to.
type DataService interface {
	FindAccounts(ctx context.Context, login, senha string) ([]dataservice.Record, error)
	CreateAccount(ctx context.Context, a dataservice.Account) error
	CreateDriver(ctx context.Context, d dataservice.DriverProfile) (dataservice.DriverProfile, error)
	CreateVehicle(ctx context.Context, v dataservice.Vehicle) error
	Navigation(ctx context.Context) (dataservice.Navigation, error)
}

// Config holds the fixed page routes.
type Config struct {
	LoginPage       string
	LandingPage     string
	DriverDashboard string
	AdminDashboard  string
	// LogoutAction is where the header's logout control posts.
	LogoutAction string
}

type Manager struct {
	cfg   Config
	api   DataService
	store Store
	nav   Navigator
}

func NewManager(cfg Config, api DataService, store Store, nav Navigator) *Manager {
	return &Manager{cfg: cfg, api: api, store: store, nav: nav}
}

// Login looks the account up by login and password. It succeeds only when
// exactly one account matches; the record is then saved without its password.
func (m *Manager) Login(ctx context.Context, login, senha string) bool {
	recs, err := m.api.FindAccounts(ctx, login, senha)
	if err != nil {
		logger.Error("login %s: %v", login, err)
		return false
	}
	if len(recs) != 1 || recs[0] == nil {
		logger.Info("login %s: %d matching accounts", login, len(recs))
		return false
	}
	if err := m.saveSession(recs[0]); err != nil {
		logger.Error("login %s: save session: %v", login, err)
		return false
	}
	logger.Info("User %s logged in as %s", login, recs[0].String("role"))
	return true
}

func (m *Manager) saveSession(rec dataservice.Record) error {
	clean := make(dataservice.Record, len(rec))
	for k, v := range rec {
		if k == secretField {
			continue
		}
		clean[k] = v
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	return m.store.Set(KeyCurrentUser, string(b))
}

// Logout clears the whole tab storage and goes to the landing page.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		logger.Error("logout: clear session: %v", err)
	}
	m.nav.Navigate(m.cfg.LandingPage)
}

// Register creates a parent account. It does not log the new user in.
func (m *Manager) Register(ctx context.Context, nome, login, senha, email, celular string) bool {
	acc := dataservice.Account{
		Nome:    nome,
		Login:   login,
		Senha:   senha,
		Email:   email,
		Celular: celular,
		Role:    string(RoleParent),
	}
	if err := m.api.CreateAccount(ctx, acc); err != nil {
		logger.Error("register %s: %v", login, err)
		return false
	}
	logger.Info("Registered parent account %s", login)
	return true
}

// RegisterDriver creates the driver profile, the vehicle and the driver
// account, in that order. Nothing is rolled back when a later step fails.
func (m *Manager) RegisterDriver(ctx context.Context, d DriverSignup) DriverResult {
	saved, err := m.api.CreateDriver(ctx, dataservice.DriverProfile{
		Name:         d.Nome,
		ContactEmail: d.Email,
		Phone:        d.Phone,
		Status:       dataservice.DriverStatusActive,
		PhotoURL:     "",
	})
	if err != nil {
		logger.Error("register driver %s: %v", d.Login, err)
		return DriverResult{}
	}
	res := DriverResult{DriverID: saved.ID}

	res.VehicleErr = m.createVehicle(ctx, saved.ID, d)
	if res.VehicleErr != nil {
		logger.Warn("register driver %s: vehicle not created, continuing: %v", d.Login, res.VehicleErr)
	}

	err = m.api.CreateAccount(ctx, dataservice.Account{
		Nome:     d.Nome,
		Email:    d.Email,
		Login:    d.Login,
		Senha:    d.Senha,
		Role:     string(RoleDriver),
		DriverID: saved.ID,
	})
	if err != nil {
		logger.Error("register driver %s: driver %s left without account: %v", d.Login, saved.ID, err)
		return res
	}

	res.OK = true
	logger.Info("Registered driver account %s (driver %s)", d.Login, saved.ID)
	return res
}

func (m *Manager) createVehicle(ctx context.Context, driverID dataservice.ID, d DriverSignup) error {
	capacity, err := parseCapacity(d.VehicleCapacity)
	if err != nil {
		return err
	}
	return m.api.CreateVehicle(ctx, dataservice.Vehicle{
		DriverID:       driverID,
		Model:          d.VehicleModel,
		Plate:          d.VehiclePlate,
		Capacity:       capacity,
		AvailableSpots: capacity,
	})
}

func parseCapacity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid vehicle capacity %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid vehicle capacity %q: must not be negative", s)
	}
	return n, nil
}

func (m *Manager) IsAuthenticated() bool {
	_, ok := m.store.Get(KeyCurrentUser)
	return ok
}

// CurrentUser returns the session record, or nil when nobody is logged in.
func (m *Manager) CurrentUser() (*User, error) {
	raw, ok := m.store.Get(KeyCurrentUser)
	if !ok {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return &u, nil
}

// ProtectPage sends unauthenticated visitors to the login page, remembering
// where they were. Callers render the page only when it returns true.
func (m *Manager) ProtectPage() bool {
	if m.IsAuthenticated() {
		return true
	}
	if err := m.store.Set(KeyRedirectURL, m.nav.Location()); err != nil {
		logger.Warn("protect page: remember %s: %v", m.nav.Location(), err)
	}
	m.nav.Navigate(m.cfg.LoginPage)
	return false
}

// RedirectAfterLogin sends the user to the page for their role. Parents go
// back to the page that required the login, if any.
func (m *Manager) RedirectAfterLogin() error {
	u, err := m.CurrentUser()
	if err != nil {
		return err
	}
	if u == nil {
		m.nav.Navigate(m.cfg.LoginPage)
		return nil
	}

	switch u.Role {
	case RoleDriver:
		m.nav.Navigate(m.cfg.DriverDashboard)
	case RoleAdmin:
		m.nav.Navigate(m.cfg.AdminDashboard)
	default:
		target, _ := m.store.Get(KeyRedirectURL)
		if err := m.store.Remove(KeyRedirectURL); err != nil {
			logger.Warn("redirect after login: forget %s: %v", KeyRedirectURL, err)
		}
		if !isLocalPath(target) {
			target = m.cfg.LandingPage
		}
		m.nav.Navigate(target)
	}
	return nil
}

// isLocalPath accepts same-origin absolute paths only.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

// SetupHeader fills the container containerID of doc with the header for the
// current role. A missing container is ignored. Data service failures leave
// the fallback menu in the container; only a corrupt session is returned.
func (m *Manager) SetupHeader(ctx context.Context, doc header.Document, containerID string) error {
	c, ok := doc.Container(containerID)
	if !ok {
		return nil
	}

	u, err := m.CurrentUser()
	if err != nil {
		return err
	}
	role := RoleGuest
	if u != nil {
		role = u.Role
	}

	view, err := m.headerView(ctx, role, u)
	if err == nil {
		err = header.Render(c, view)
	}
	if err != nil {
		logger.Error("setup header %s for %s: %v", containerID, role, err)
		header.RenderFallback(c, m.cfg.LandingPage)
	}
	return nil
}

func (m *Manager) headerView(ctx context.Context, role Role, u *User) (header.View, error) {
	nav, err := m.api.Navigation(ctx)
	if err != nil {
		return header.View{}, err
	}
	links, err := header.SelectLinks(nav, string(role))
	if err != nil {
		return header.View{}, err
	}

	view := header.View{
		Links:        links,
		Auth:         header.Guest,
		LoginHref:    m.cfg.LoginPage,
		LogoutAction: m.cfg.LogoutAction,
	}
	if u != nil {
		view.Auth = header.Authenticated
		view.FirstName = header.FirstName(u.Nome)
	}
	return view, nil
}
