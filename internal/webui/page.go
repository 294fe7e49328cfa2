package webui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/httputil"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

const sessionName = "calcutta_session"

type dataBuilder interface {
	Build(ctx context.Context, bc *builderCtx) (any, error)
}

type dataBuilderFunc func(ctx context.Context, bc *builderCtx) (any, error)

func (f dataBuilderFunc) Build(ctx context.Context, bc *builderCtx) (any, error) {
	return f(ctx, bc)
}

type pageOptions struct {
	Access session.Access
	// Do not verify the remote session before building the page.
	NoCheck bool
	Title   string
}

type page struct {
	name       string
	cfg        *Config
	pageOpts   pageOptions
	log        *slog.Logger
	b          dataBuilder
	tmpl       *template.Template
	errTmpl    *template.Template
	loadTmpl   *template.Template
	deniedTmpl *template.Template
}

type pageData struct {
	Data      any
	State     session.State
	Balance   calcapi.Money
	Flashes   []flash
	CSRFField template.HTML
	// Token of the forms rendered on the page, see builderCtx.perform.
	Token string
	Title string
}

type builderCtx struct {
	Log    *slog.Logger
	Config *Config
	Sess   *session.Session
	Req    *http.Request

	store  *sessions.Session
	writer http.ResponseWriter
}

func (bc *builderCtx) Redirect(path string) error {
	return httputil.MakeRedirectError(http.StatusSeeOther, "redirect", bc.Config.prefix+path)
}

func (bc *builderCtx) CSRFField() template.HTML {
	return csrf.TemplateField(bc.Req)
}

func (bc *builderCtx) Username() string {
	return bc.Sess.State.Username()
}

func (p *page) render(log *slog.Logger, w http.ResponseWriter, tmpl *template.Template, code int, d pageData) {
	var b bytes.Buffer
	if err := tmpl.Execute(&b, d); err != nil {
		log.Error("error rendering page", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Error("error writing page data", slogx.Err(err))
		return
	}
}

func (p *page) renderError(log *slog.Logger, w http.ResponseWriter, bc *builderCtx, httpErr *httputil.Error) {
	if httpErr.IsRedirect() {
		log.Info("send http redirect",
			slog.Int("code", httpErr.Code()),
			slog.String("location", httpErr.Location()),
		)
		httpErr.ApplyHeaders(w)
		w.WriteHeader(httpErr.Code())
		return
	}

	log.Info("send http status error",
		slog.Int("code", httpErr.Code()),
		slog.String("msg", httpErr.Message()),
	)
	httpErr.ApplyHeaders(w)
	p.render(log, w, p.errTmpl, httpErr.Code(), p.makeData(bc, struct {
		Code    int
		Message string
	}{
		Code:    httpErr.Code(),
		Message: httpErr.Message(),
	}, nil))
}

func (p *page) makeData(bc *builderCtx, data any, flashes []flash) pageData {
	token, err := journal.NewToken()
	if err != nil {
		bc.Log.Error("could not generate form token", slogx.Err(err))
	}
	return pageData{
		Data:      data,
		State:     bc.Sess.State,
		Balance:   bc.betting().DisplayBalance(bc.Sess.State.User),
		Flashes:   flashes,
		CSRFField: bc.CSRFField(),
		Token:     token,
		Title:     p.pageOpts.Title,
	}
}

func (p *page) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	log := p.log.With(slog.String("rid", httputil.ExtractReqID(ctx)))
	log.Info("handle page request",
		slog.String("method", req.Method),
		slog.String("addr", req.RemoteAddr),
	)

	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		log.Warn("method not allowed")
		writeHTTPErr(log, w, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed"))
		return
	}

	store, err := p.cfg.sessionStore.Get(req, sessionName)
	if err != nil {
		log.Info("could not decode session, starting a new one", slogx.Err(err))
	}
	if store.IsNew {
		p.cfg.opts.Session.SetupSession(store.Options)
	}
	bc := &builderCtx{
		Log:    log,
		Config: p.cfg,
		Sess:   loadSession(store.Values),
		Req:    req,
		store:  store,
		writer: w,
	}
	if !p.pageOpts.NoCheck {
		bc.checkSession(ctx)
	}

	switch bc.Sess.State.Guard(p.pageOpts.Access) {
	case session.VerdictAllow:
	case session.VerdictWait:
		bc.save()
		p.render(log, w, p.loadTmpl, http.StatusOK, p.makeData(bc, nil, nil))
		return
	case session.VerdictRedirectLogin:
		bc.save()
		p.renderError(log, w, bc, bc.Redirect("/login").(*httputil.Error))
		return
	case session.VerdictDeny:
		bc.save()
		log.Info("access denied", slog.String("username", bc.Username()))
		p.render(log, w, p.deniedTmpl, http.StatusForbidden, p.makeData(bc, nil, nil))
		return
	}

	data, err := p.b.Build(ctx, bc)
	if err != nil && calcapi.IsUnauthorized(err) {
		if bc.Sess.State.LoggedIn {
			log.Info("remote session expired", slogx.Err(err))
			bc.expireSession()
		} else {
			log.Info("remote api requires login", slogx.Err(err))
		}
		err = bc.Redirect("/login")
	}
	if err != nil {
		bc.save()
		if httpErr := (*httputil.Error)(nil); errors.As(err, &httpErr) {
			p.renderError(log, w, bc, httpErr)
			return
		}
		log.Error("error building page data", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("build page"))
		return
	}

	flashes := bc.takeFlashes()
	bc.save()
	p.render(log, w, p.tmpl, http.StatusOK, p.makeData(bc, data, flashes))
}

func newPage(
	log *slog.Logger,
	cfg *Config,
	pageOpts pageOptions,
	templator *templator,
	builder dataBuilder,
	name string,
) (http.Handler, error) {
	get := func(name string) (*template.Template, error) {
		if name == "" {
			return nil, nil
		}
		tmpl, err := templator.Get(name)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		return tmpl, nil
	}
	p := &page{
		name:     name,
		cfg:      cfg,
		pageOpts: pageOpts,
		log:      log.With(slog.String("page", name)),
		b:        builder,
	}
	var err error
	if p.tmpl, err = get(name); err != nil {
		return nil, err
	}
	if p.errTmpl, err = get("error"); err != nil {
		return nil, err
	}
	if p.loadTmpl, err = get("loading"); err != nil {
		return nil, err
	}
	if p.deniedTmpl, err = get("denied"); err != nil {
		return nil, err
	}
	return p, nil
}
