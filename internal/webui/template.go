package webui

import (
	"fmt"
	"html/template"
	"time"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/human"
)

type templator struct {
	cfg  *Config
	tmpl map[string]*template.Template
}

func newTemplator(cfg *Config) *templator {
	return &templator{
		cfg:  cfg,
		tmpl: make(map[string]*template.Template),
	}
}

func (t *templator) makeFuncs() template.FuncMap {
	return template.FuncMap{
		"asURL": func(s string) string {
			return t.cfg.prefix + s
		},
		"asStaticURL": func(s string) string {
			return t.cfg.prefix + s + "?" + t.cfg.serverID
		},
		"money": func(m calcapi.Money) string {
			return "$" + m.String()
		},
		"humanTime": func(tm time.Time) string {
			return human.TimeFromBase(time.Now(), tm.Local())
		},
		"fullTime": func(tm time.Time) string {
			return tm.Local().Format(time.RFC1123)
		},
		"gameTypes": func() []calcapi.GameType {
			return calcapi.GameTypes
		},
		"inc": func(i int) int {
			return i + 1
		},
	}
}

// Get returns the page template with the given name. Every page template is parsed together
// with the base layout and the shared parts.
func (t *templator) Get(name string) (*template.Template, error) {
	if tmpl, ok := t.tmpl[name]; ok {
		return tmpl, nil
	}
	files := []string{
		"template/base.html",
		"template/parts.html",
		fmt.Sprintf("template/%v.html", name),
	}
	tmpl, err := template.New(name).Funcs(t.makeFuncs()).ParseFS(templates, files...)
	if err != nil {
		return nil, fmt.Errorf("template %v parse: %w", name, err)
	}
	tmpl = tmpl.Lookup("base")
	if tmpl == nil {
		return nil, fmt.Errorf("template %v: no base", name)
	}
	t.tmpl[name] = tmpl
	return tmpl, nil
}
