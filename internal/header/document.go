package header

import (
	"html/template"
	"strings"
)

// Document gives access to a page's named containers.
type Document interface {
	Container(id string) (*Container, bool)
}

// Container is an element of a page whose content is filled at request time.
type Container struct {
	ID  string
	Tag string

	content template.HTML
}

func NewContainer(id, tag string) *Container {
	return &Container{ID: id, Tag: tag}
}

// IsNavList reports whether the container is a navigation list (<ul>).
func (c *Container) IsNavList() bool { return strings.EqualFold(c.Tag, "ul") }

func (c *Container) SetContent(h template.HTML) { c.content = h }

func (c *Container) Content() template.HTML { return c.content }

// Page is a Document made of a fixed set of containers.
type Page struct {
	containers map[string]*Container
}

func NewPage(cs ...*Container) *Page {
	p := &Page{containers: make(map[string]*Container, len(cs))}
	for _, c := range cs {
		p.containers[c.ID] = c
	}
	return p
}

func (p *Page) Container(id string) (*Container, bool) {
	c, ok := p.containers[id]
	return c, ok
}

// HTML returns the content of the container id, or "" if the page has none.
// Templates call it to place headers.
func (p *Page) HTML(id string) template.HTML {
	if c, ok := p.containers[id]; ok {
		return c.content
	}
	return ""
}
