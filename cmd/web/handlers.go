package main

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"github.com/myrjola/kastor/internal/contexthelpers"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/myrjola/kastor/ui"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
)

func init() {
	gob.Register(playthrough.Snapshot{}) //nolint:exhaustruct // registration only needs the type
}

// parseTemplates parses one template set per page directory inside ui/templates/pages.
//
// Every page has to include a template named "main". It is rendered on its own for htmx requests.
func parseTemplates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(ui.Files, "templates/pages/*")
	if err != nil {
		return nil, errors.Wrap(err, "glob pages")
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := path.Base(page)
		// We need to initialize the FuncMap before parsing the files. These will be overridden in the render function.
		var t *template.Template
		t, err = template.New(name).Funcs(template.FuncMap{
			"nonce": func() template.HTMLAttr {
				panic("not implemented")
			},
			"csrf": func() template.HTML {
				panic("not implemented")
			},
		}).ParseFS(ui.Files, "templates/base.gohtml", page+"/*.gohtml")
		if err != nil {
			return nil, errors.Wrap(err, "parse page", slog.String("page", name))
		}
		templates[name] = t
	}
	return templates, nil
}

// render executes the page template. htmx requests only get the "main" template, full page loads get "base".
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	base, ok := app.templates[page]
	if !ok {
		app.serverError(w, r, errors.New("page template not found", slog.String("page", page)))
		return
	}

	t, err := base.Clone()
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "clone template", slog.String("page", page)))
		return
	}

	buf := new(bytes.Buffer)
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	})

	name := "base"
	if contexthelpers.IsHTMX(ctx) {
		name = "main"
	}
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("page", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
