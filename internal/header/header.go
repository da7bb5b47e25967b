// Package header builds the site header from the navigation descriptor.
//
// Data shaping (View) is kept apart from presentation (Render): the session
// manager decides which links and which auth state apply, this package turns
// that into markup for a container.
package header

import (
	"bytes"
	"errors"
	"html/template"
	"strings"

	"github.com/hnrobert/vanconnect/internal/dataservice"
)

// GuestRole keys the descriptor entry used when a role has none of its own.
const GuestRole = "guest"

var ErrNoLinks = errors.New("navigation descriptor has no entry for role or guest")

type AuthState int

const (
	Guest AuthState = iota
	Authenticated
)

func (s AuthState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "guest"
}

type View struct {
	Links []dataservice.Link
	Auth  AuthState
	// FirstName is the greeting name, only set when Authenticated.
	FirstName    string
	LoginHref    string
	LogoutAction string
}

func (v View) Authenticated() bool { return v.Auth == Authenticated }

// SelectLinks returns the links for role, or guest's links when the role is
// missing from nav. Order is the descriptor's.
func SelectLinks(nav dataservice.Navigation, role string) ([]dataservice.Link, error) {
	if links, ok := nav[role]; ok && links != nil {
		return links, nil
	}
	if links, ok := nav[GuestRole]; ok && links != nil {
		return links, nil
	}
	return nil, ErrNoLinks
}

// FirstName returns the first whitespace separated token of a display name.
func FirstName(nome string) string {
	f := strings.Fields(nome)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

var tmpl = template.Must(template.New("header").Parse(`
{{- define "links"}}{{range .Links}}<li><a href="{{.Href}}">{{.Text}}</a></li>{{end}}{{end -}}
{{- define "auth"}}{{if .Authenticated -}}
<li class="nav-user-info"><span class="navbar-text">Olá, {{.FirstName}}</span><form method="post" action="{{.LogoutAction}}" class="nav-logout-form"><button type="submit" id="logout-link" class="nav-button-logout" title="Sair">Sair</button></form></li>
{{- else -}}
<li><a href="{{.LoginHref}}" class="nav-button login-button">Login / Registrar</a></li>
{{- end}}{{end -}}
{{- define "fallback"}}<li><a href="{{.}}">Início</a></li><li><span class="nav-error">Menu indisponível</span></li>{{end -}}
`))

// Render replaces the container content. Navigation lists get the links and
// the auth fragment, any other container only the auth fragment.
func Render(c *Container, v View) error {
	var buf bytes.Buffer
	if c.IsNavList() {
		if err := tmpl.ExecuteTemplate(&buf, "links", v); err != nil {
			return err
		}
	}
	if err := tmpl.ExecuteTemplate(&buf, "auth", v); err != nil {
		return err
	}
	c.SetContent(template.HTML(buf.String()))
	return nil
}

// RenderFallback replaces the container content with a home link and a
// "menu unavailable" notice.
func RenderFallback(c *Container, home string) {
	c.SetContent(FallbackHTML(home))
}

func FallbackHTML(home string) template.HTML {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "fallback", home); err != nil {
		return template.HTML(`<li><span class="nav-error">Menu indisponível</span></li>`)
	}
	return template.HTML(buf.String())
}
