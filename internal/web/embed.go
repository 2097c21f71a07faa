package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
)

//go:embed static
var staticFiles embed.FS

//go:embed templates
var templateFiles embed.FS

//go:embed mail/mail.html
var mailTemplate string

// StaticFS is the embedded static file system with the "static/" prefix stripped.
var StaticFS fs.FS

// Templates holds the report page and the history index.
var Templates *template.Template

func init() {
	var err error

	StaticFS, err = fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("web: failed to create static FS", "err", err)
		panic(err)
	}

	Templates, err = template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		slog.Error("web: failed to parse templates", "err", err)
		panic(err)
	}
}

// Style returns the report stylesheet.
func Style() string {
	return mustRead("style.css")
}

// Script returns the report's filter and sort script.
func Script() string {
	return mustRead("main.js")
}

// MailTemplate is the default body of the report email. It uses
// ${mail_*} placeholders.
func MailTemplate() string {
	return mailTemplate
}

func mustRead(name string) string {
	b, err := fs.ReadFile(StaticFS, name)
	if err != nil {
		panic(err)
	}
	return string(b)
}
