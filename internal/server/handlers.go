package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hnrobert/vanconnect/internal/logger"
	"github.com/hnrobert/vanconnect/internal/session"
)

// Flash texts shown on the login page after a registration.
var registeredFlash = map[string]struct{ text, kind string }{
	"parent":         {"Cadastro realizado! Faça login para continuar.", "ok"},
	"driver":         {"Cadastro de motorista realizado! Faça login para continuar.", "ok"},
	"driver-vehicle": {"Cadastro de motorista realizado, mas o veículo não pôde ser salvo. Cadastre-o novamente pelo painel.", "warn"},
}

func (a *App) handleLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != a.routes.Landing {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st, err := a.settings.Get()
	if err != nil {
		logger.Error("load settings: %v", err)
	}
	a.renderPage(w, r, "index", &ViewData{Notice: renderNotice(st.HomeNotice)})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	t := tabFrom(r)
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if t.m.IsAuthenticated() {
			a.redirectAfterLogin(w, r)
			return
		}
		data := &ViewData{}
		if f, ok := registeredFlash[r.URL.Query().Get("registered")]; ok {
			data.Flash, data.FlashKind = f.text, f.kind
		}
		a.renderPage(w, r, "login", data)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_ = r.ParseForm()
	login := strings.TrimSpace(r.Form.Get("login"))
	senha := r.Form.Get("senha")
	form := map[string]string{"login": login}
	if login == "" || senha == "" {
		a.renderPage(w, r, "login", &ViewData{Form: form, Flash: "Informe login e senha.", FlashKind: "err"})
		return
	}
	if !t.m.Login(r.Context(), login, senha) {
		logger.Info("Failed login attempt for %s from %s", login, remoteIP(r))
		a.renderPage(w, r, "login", &ViewData{Form: form, Flash: "Login ou senha incorretos.", FlashKind: "err"})
		return
	}
	a.redirectAfterLogin(w, r)
}

func (a *App) redirectAfterLogin(w http.ResponseWriter, r *http.Request) {
	t := tabFrom(r)
	if err := t.m.RedirectAfterLogin(); err != nil {
		logger.Error("redirect after login: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	t.follow(w, r)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t := tabFrom(r)
	if u, _ := t.m.CurrentUser(); u != nil {
		logger.Info("User %s logged out from %s", u.Login, remoteIP(r))
	}
	t.m.Logout()
	t.follow(w, r)
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	t := tabFrom(r)
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.renderPage(w, r, "register", &ViewData{})
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_ = r.ParseForm()
	form := formValues(r, "nome", "login", "email", "celular")
	senha := r.Form.Get("senha")
	if missing(form["nome"], form["login"], form["email"], senha) {
		a.renderPage(w, r, "register", &ViewData{Form: form, Flash: "Preencha nome, login, e-mail e senha.", FlashKind: "err"})
		return
	}
	if senha != r.Form.Get("senha_confirmacao") {
		a.renderPage(w, r, "register", &ViewData{Form: form, Flash: "As senhas não conferem.", FlashKind: "err"})
		return
	}
	if !t.m.Register(r.Context(), form["nome"], form["login"], senha, form["email"], form["celular"]) {
		a.renderPage(w, r, "register", &ViewData{Form: form, Flash: "Não foi possível concluir o cadastro. Tente novamente.", FlashKind: "err"})
		return
	}
	http.Redirect(w, r, a.routes.Login+"?registered=parent", http.StatusSeeOther)
}

func (a *App) handleRegisterDriver(w http.ResponseWriter, r *http.Request) {
	t := tabFrom(r)
	st, err := a.settings.Get()
	if err != nil {
		logger.Error("load settings: %v", err)
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		data := &ViewData{SignupClosed: st.DriverSignupClosed}
		if st.DriverSignupClosed {
			data.Flash, data.FlashKind = "O cadastro de motoristas está temporariamente fechado.", "err"
		}
		a.renderPage(w, r, "register_driver", data)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if st.DriverSignupClosed {
		http.Error(w, "driver signup is closed", http.StatusForbidden)
		return
	}

	_ = r.ParseForm()
	form := formValues(r, "nome", "email", "phone", "login", "vehicle_model", "vehicle_plate", "vehicle_capacity")
	senha := r.Form.Get("senha")
	if missing(form["nome"], form["email"], form["login"], senha) {
		a.renderPage(w, r, "register_driver", &ViewData{Form: form, Flash: "Preencha nome, e-mail, login e senha.", FlashKind: "err"})
		return
	}

	res := t.m.RegisterDriver(r.Context(), session.DriverSignup{
		Nome:            form["nome"],
		Email:           form["email"],
		Phone:           form["phone"],
		Login:           form["login"],
		Senha:           senha,
		VehicleModel:    form["vehicle_model"],
		VehiclePlate:    form["vehicle_plate"],
		VehicleCapacity: form["vehicle_capacity"],
	})
	switch {
	case !res.OK:
		a.renderPage(w, r, "register_driver", &ViewData{Form: form, Flash: "Não foi possível concluir o cadastro de motorista. Tente novamente.", FlashKind: "err"})
	case res.Warning():
		http.Redirect(w, r, a.routes.Login+"?registered=driver-vehicle", http.StatusSeeOther)
	default:
		http.Redirect(w, r, a.routes.Login+"?registered=driver", http.StatusSeeOther)
	}
}

func (a *App) handleAccount(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "conta", &ViewData{})
}

func (a *App) handleDriverDashboard(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "motorista", &ViewData{})
}

func (a *App) handleAdmin(w http.ResponseWriter, r *http.Request) {
	t := tabFrom(r)
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		st, err := a.settings.Get()
		data := &ViewData{Settings: st, Notice: renderNotice(st.HomeNotice)}
		if err != nil {
			data.Flash, data.FlashKind = "Falha ao carregar configurações: "+err.Error(), "err"
		} else if r.URL.Query().Get("ok") == "1" {
			data.Flash, data.FlashKind = "Salvo.", "ok"
		}
		a.renderPage(w, r, "admin", data)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, _ := t.m.CurrentUser()
	_ = r.ParseForm()
	notice := r.Form.Get("home_notice")
	closed := r.Form.Get("driver_signup_closed") == "on"
	err := errors.Join(
		a.settings.SetHomeNotice(notice, u.Login),
		a.settings.SetDriverSignupClosed(closed, u.Login),
	)
	if err != nil {
		logger.Error("save settings: %v", err)
		st, _ := a.settings.Get()
		st.HomeNotice = notice
		a.renderPage(w, r, "admin", &ViewData{Settings: st, Flash: "Falha ao salvar: " + err.Error(), FlashKind: "err"})
		return
	}
	logger.Info("Admin %s updated site settings", u.Login)
	http.Redirect(w, r, a.routes.AdminDashboard+"?ok=1", http.StatusSeeOther)
}

func formValues(r *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = strings.TrimSpace(r.Form.Get(k))
	}
	return out
}

func missing(vals ...string) bool {
	for _, v := range vals {
		if v == "" {
			return true
		}
	}
	return false
}

// renderPage fills the header containers for the current session and renders
// page inside the layout.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, page string, data *ViewData) {
	t := tabFrom(r)
	doc := newDocument()
	ids := []string{navContainer}
	if page == "admin" {
		ids = append(ids, accountContainer)
	}
	for _, id := range ids {
		if err := t.m.SetupHeader(r.Context(), doc, id); err != nil {
			logger.Error("setup header %s: %v", id, err)
		}
	}
	data.Nav = doc.HTML(navContainer)
	data.AccountBox = doc.HTML(accountContainer)
	data.Routes = a.routes
	if data.User == nil {
		data.User, _ = t.m.CurrentUser()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tpl := a.pages[page]
	if tpl == nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if err := tpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("renderPage template execution failed for %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
