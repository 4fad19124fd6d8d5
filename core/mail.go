package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const (
	textExt = ".txt"
	htmlExt = ".gohtml"
	// every template is rendered inside the layout of the same extension
	layoutName = "layout"
)

type (
	// EmailTemplates holds the parsed email templates, by name (without ext).
	EmailTemplates struct {
		text map[string]*texttmpl.Template
		html map[string]*htmltmpl.Template
	}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName string
		Data    interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// ParseEmailTemplates parses every `<name>.txt` and `<name>.gohtml` found in `dir` of `fsys`.
func ParseEmailTemplates(fsys fs.FS, dir string, strict bool) (*EmailTemplates, error) {
	tmpls := &EmailTemplates{
		text: make(map[string]*texttmpl.Template),
		html: make(map[string]*htmltmpl.Template),
	}

	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		if name == layoutName {
			continue
		}

		switch ext {
		case textExt:
			tmpl, err := texttmpl.ParseFS(fsys, path.Join(dir, layoutName+textExt), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			tmpls.text[name] = tmpl
		case htmlExt:
			tmpl, err := htmltmpl.ParseFS(fsys, path.Join(dir, layoutName+htmlExt), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			tmpls.html[name] = tmpl
		}
	}
	return tmpls, nil
}

func (m *EmailMessage) renderText(tmpls *EmailTemplates, data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	tmpl, ok := tmpls.text[m.TemplateName]
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, layoutName+textExt, data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(tmpls *EmailTemplates, data ContextData) error {
	tmpl, ok := tmpls.html[m.TemplateName]
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, layoutName+htmlExt, data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent and HTMLContent from BodyStr or from the message's templates.
func (m *EmailMessage) Render(tmpls *EmailTemplates, appName string) error {
	if tmpls == nil || m.TemplateName == "" {
		m.TextContent = m.BodyStr
		return nil
	}
	data := ContextData{AppName: appName, Data: m.TemplateData}
	if err := m.renderText(tmpls, data); err != nil {
		return errors.Wrap(err, "rendering text content")
	}
	return errors.Wrap(m.renderHTML(tmpls, data), "rendering html content")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
