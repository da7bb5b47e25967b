package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hnrobert/vanconnect/internal/auth"
	"github.com/hnrobert/vanconnect/internal/config"
	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/mockapi"
	"github.com/hnrobert/vanconnect/internal/session"
	"github.com/hnrobert/vanconnect/internal/tabstore"
)

const testSecret = "server-test-secret-value"

type harness struct {
	db     *mockapi.DB
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	db := mockapi.NewDB(filepath.Join(dir, "db.json"))
	if err := db.Ensure(); err != nil {
		t.Fatalf("ensure db: %v", err)
	}
	api := httptest.NewServer(mockapi.New(db).Routes())
	t.Cleanup(api.Close)

	h := newHarnessWithAPI(t, dir, api.URL)
	h.db = db
	return h
}

func newHarnessWithAPI(t *testing.T, dir, apiURL string) *harness {
	t.Helper()
	settings := config.NewStore(filepath.Join(dir, "settings.json"))
	if err := settings.Ensure(); err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	app, err := NewApp(Options{
		Routes:   config.DefaultConfig().Routes,
		API:      dataservice.NewClient(apiURL, 5*time.Second),
		Tabs:     tabstore.NewCookieBackend(auth.DefaultCookieName, auth.DecodeSecret(testSecret), false, time.Hour),
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &harness{
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	res, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	return h.do(t, req)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(t, req)
}

func (h *harness) seedAccount(t *testing.T, fields map[string]any) {
	t.Helper()
	b, _ := json.Marshal(fields)
	var rec dataservice.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatal(err)
	}
	if _, err := h.db.Insert(mockapi.Usuarios, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (h *harness) login(t *testing.T, login, senha string) *http.Response {
	t.Helper()
	res, _ := h.post(t, "/login", url.Values{"login": {login}, "senha": {senha}})
	return res
}

func expectRedirect(t *testing.T, res *http.Response, want string) {
	t.Helper()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 to %s, got %d", want, res.StatusCode)
	}
	if got := res.Header.Get("Location"); got != want {
		t.Fatalf("expected redirect to %s, got %s", want, got)
	}
}

func TestGuestLanding(t *testing.T) {
	h := newHarness(t)
	res, body := h.get(t, "/")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if !strings.Contains(body, "Login / Registrar") || !strings.Contains(body, "Cadastro de pais") {
		t.Fatalf("expected the guest header, got %s", body)
	}
}

func TestProtectedPageRemembersPath(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"id": 1, "nome": "Ana Souza", "login": "ana", "senha": "123", "role": "parent"})

	res, _ := h.get(t, "/conta?tab=dados")
	expectRedirect(t, res, "/login")

	expectRedirect(t, h.login(t, "ana", "123"), "/conta?tab=dados")

	res, body := h.get(t, "/conta")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if !strings.Contains(body, "Olá, Ana") || !strings.Contains(body, "Minha conta") {
		t.Fatalf("expected the parent header and account page, got %s", body)
	}
	if strings.Contains(body, "123") {
		t.Fatal("password must never reach the page")
	}
}

func TestRoleRedirectsAndGuards(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"nome": "Carlos Lima", "login": "carlos", "senha": "x", "role": "driver", "driverId": 7})

	expectRedirect(t, h.login(t, "carlos", "x"), "/motorista")

	res, body := h.get(t, "/motorista")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "Painel do motorista") {
		t.Fatalf("driver dashboard: %d %s", res.StatusCode, body)
	}
	if res, _ := h.get(t, "/admin"); res.StatusCode != http.StatusForbidden {
		t.Fatalf("driver must not reach the admin page, got %d", res.StatusCode)
	}

	// Visiting the login page while logged in goes to the role's page.
	res, _ = h.get(t, "/login")
	expectRedirect(t, res, "/motorista")
}

func TestFailedLogin(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"nome": "Ana", "login": "ana", "senha": "123", "role": "parent"})

	res, body := h.post(t, "/login", url.Values{"login": {"ana"}, "senha": {"errada"}})
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "Login ou senha incorretos.") {
		t.Fatalf("expected the login form with an error, got %d", res.StatusCode)
	}
	if res, _ := h.get(t, "/conta"); res.StatusCode != http.StatusSeeOther {
		t.Fatal("failed login must not authenticate")
	}
}

func TestLoginWithNumericPhone(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"nome": "Bia", "login": "bia", "senha": "x", "celular": 31999990000, "role": "parent"})

	expectRedirect(t, h.login(t, "bia", "x"), "/")

	res, body := h.get(t, "/conta")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if !strings.Contains(body, "31999990000") {
		t.Fatalf("expected the phone on the account page, got %s", body)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"nome": "Ana", "login": "ana", "senha": "123", "role": "parent"})
	h.login(t, "ana", "123")

	if res, _ := h.get(t, "/logout"); res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("logout must be a POST, got %d", res.StatusCode)
	}
	res, _ := h.post(t, "/logout", nil)
	expectRedirect(t, res, "/")

	res, _ = h.get(t, "/conta")
	expectRedirect(t, res, "/login")
}

func TestRegisterParent(t *testing.T) {
	h := newHarness(t)
	res, _ := h.post(t, "/register", url.Values{
		"nome": {"Beatriz Costa"}, "login": {"bia"}, "email": {"bia@example.com"}, "celular": {"11999990000"},
		"senha": {"s3nha"}, "senha_confirmacao": {"s3nha"},
	})
	expectRedirect(t, res, "/login?registered=parent")

	recs, _ := h.db.List(mockapi.Usuarios, map[string]string{"login": "bia"})
	if len(recs) != 1 || recs[0].String("role") != "parent" {
		t.Fatalf("expected one parent account, got %v", recs)
	}

	// Registration does not log in.
	res, _ = h.get(t, "/conta")
	expectRedirect(t, res, "/login")
	expectRedirect(t, h.login(t, "bia", "s3nha"), "/conta")
}

func TestRegisterParentRejectsMismatch(t *testing.T) {
	h := newHarness(t)
	res, body := h.post(t, "/register", url.Values{
		"nome": {"Bia"}, "login": {"bia"}, "email": {"bia@example.com"},
		"senha": {"a"}, "senha_confirmacao": {"b"},
	})
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "As senhas não conferem.") {
		t.Fatalf("expected a form error, got %d", res.StatusCode)
	}
	if !strings.Contains(body, `value="bia@example.com"`) {
		t.Fatal("expected the form to be refilled")
	}
	if recs, _ := h.db.List(mockapi.Usuarios, nil); len(recs) != 0 {
		t.Fatal("nothing should be created")
	}
}

func TestRegisterDriver(t *testing.T) {
	h := newHarness(t)
	res, _ := h.post(t, "/register/driver", url.Values{
		"nome": {"Carlos Lima"}, "email": {"carlos@example.com"}, "phone": {"1133334444"},
		"login": {"carlos"}, "senha": {"x"},
		"vehicle_model": {"Sprinter"}, "vehicle_plate": {"ABC1D23"}, "vehicle_capacity": {"15"},
	})
	expectRedirect(t, res, "/login?registered=driver")

	drivers, _ := h.db.List(mockapi.Drivers, nil)
	if len(drivers) != 1 || drivers[0].String("status") != dataservice.DriverStatusActive {
		t.Fatalf("expected an active driver profile, got %v", drivers)
	}
	driverID := drivers[0].String("id")
	if vs, _ := h.db.List(mockapi.Vehicles, map[string]string{"driverId": driverID, "availableSpots": "15"}); len(vs) != 1 {
		t.Fatalf("expected the vehicle linked to %s", driverID)
	}
	accs, _ := h.db.List(mockapi.Usuarios, map[string]string{"login": "carlos", "role": "driver", "driverId": driverID})
	if len(accs) != 1 {
		t.Fatal("expected the driver account linked to the profile")
	}
}

func TestRegisterDriverWithoutVehicle(t *testing.T) {
	h := newHarness(t)
	res, _ := h.post(t, "/register/driver", url.Values{
		"nome": {"Carlos"}, "email": {"c@example.com"}, "login": {"carlos"}, "senha": {"x"},
		"vehicle_capacity": {"muitos"},
	})
	expectRedirect(t, res, "/login?registered=driver-vehicle")

	if vs, _ := h.db.List(mockapi.Vehicles, nil); len(vs) != 0 {
		t.Fatal("no vehicle should be stored")
	}
	if accs, _ := h.db.List(mockapi.Usuarios, map[string]string{"login": "carlos"}); len(accs) != 1 {
		t.Fatal("the account is still created")
	}
	_, body := h.get(t, "/login?registered=driver-vehicle")
	if !strings.Contains(body, "flash-warn") {
		t.Fatal("expected the partial registration warning")
	}
}

func TestAdminSettings(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, map[string]any{"nome": "Root Admin", "login": "root", "senha": "r", "role": "admin"})
	expectRedirect(t, h.login(t, "root", "r"), "/admin")

	res, body := h.get(t, "/admin")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin page status %d", res.StatusCode)
	}
	if !strings.Contains(body, `id="account-box"`) || !strings.Contains(body, "Olá, Root") {
		t.Fatal("expected the account box with the auth fragment")
	}

	res, _ = h.post(t, "/admin", url.Values{
		"home_notice":          {"**Aulas voltam** dia 3\n\n<script>alert(1)</script>\n"},
		"driver_signup_closed": {"on"},
	})
	expectRedirect(t, res, "/admin?ok=1")

	_, body = h.get(t, "/")
	if !strings.Contains(body, "<strong>Aulas voltam</strong>") {
		t.Fatalf("expected the rendered notice, got %s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatal("raw html in the notice must not be rendered")
	}

	res, _ = h.post(t, "/register/driver", url.Values{"nome": {"X"}, "email": {"x@x"}, "login": {"x"}, "senha": {"x"}})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("driver signup should be closed, got %d", res.StatusCode)
	}
}

func TestHeaderFallbackWhenDataServiceIsDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	apiURL := down.URL
	down.Close()

	h := newHarnessWithAPI(t, t.TempDir(), apiURL)
	res, body := h.get(t, "/")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("the page still renders, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "Menu indisponível") {
		t.Fatalf("expected the fallback menu, got %s", body)
	}
}

func TestCorruptSessionIsDropped(t *testing.T) {
	h := newHarness(t)
	tok, err := auth.SignHS256(auth.DecodeSecret(testSecret), map[string]string{session.KeyCurrentUser: "{not json"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/", nil)
	req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: tok})
	res, body := h.do(t, req)
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "Login / Registrar") {
		t.Fatalf("expected a guest page, got %d", res.StatusCode)
	}
	cleared := false
	for _, c := range res.Cookies() {
		if c.Name == auth.DefaultCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected the corrupt session cookie to be cleared")
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res, body := h.get(t, "/api/healthz")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `"ok":true`) {
		t.Fatalf("healthz: %d %s", res.StatusCode, body)
	}
	if len(res.Cookies()) != 0 {
		t.Fatal("healthz must not touch tab storage")
	}
}
