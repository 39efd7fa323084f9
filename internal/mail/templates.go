package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template keys
const (
	TemplateOTP           = "otp"
	TemplateWelcome       = "verified"
	TemplateResetPassword = "reset_password"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a template key and data into HTML and plain-text bodies.
// Every key has a <key>.html.tmpl and a <key>.txt.tmpl file.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

func (r *Renderer) Render(key string, data map[string]any) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := r.html.ExecuteTemplate(&hb, key+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", key, err)
	}
	if err := r.text.ExecuteTemplate(&tb, key+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", key, err)
	}
	return hb.String(), tb.String(), nil
}
