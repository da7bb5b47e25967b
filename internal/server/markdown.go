package server

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hnrobert/vanconnect/internal/logger"
)

// The default renderer drops raw HTML, so the output is safe to inline.
var notices = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// renderNotice converts the landing notice markdown to HTML.
func renderNotice(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := notices.Convert([]byte(md), &buf); err != nil {
		logger.Warn("render notice: %v", err)
		return ""
	}
	return template.HTML(buf.String())
}
