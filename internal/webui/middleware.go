package webui

import (
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/util/httputil"
)

type middlewareBuilder struct {
	Log         *slog.Logger
	Prefix      string
	CSRFProtect func(http.Handler) http.Handler
	Compress    func(http.Handler) http.Handler
}

type middlewareKind int

const (
	kindPage middlewareKind = iota
	kindStatic
)

func (k middlewareKind) String() string {
	switch k {
	case kindPage:
		return "page"
	case kindStatic:
		return "static"
	default:
		panic("must not happen")
	}
}

type middleware struct {
	b    *middlewareBuilder
	h    http.Handler
	kind middlewareKind
}

func (m *middleware) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	req = httputil.WrapRequest(req)
	m.b.Log.Info("handle request",
		slog.String("rid", httputil.ExtractReqID(req.Context())),
		slog.String("uri", req.RequestURI),
		slog.String("method", req.Method),
		slog.String("addr", req.RemoteAddr),
		slog.String("kind", m.kind.String()),
	)
	h := w.Header()
	switch m.kind {
	case kindPage:
		// Pages show balances and form tokens, so they must never be cached or framed.
		h.Set("Cache-Control", "no-store")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
	case kindStatic:
		h.Set("Cache-Control", "max-age=86400, public")
	default:
		panic("must not happen")
	}
	h.Set("X-Content-Type-Options", "nosniff")
	m.h.ServeHTTP(w, req)
}

func (b *middlewareBuilder) wrap(h http.Handler, kind middlewareKind) http.Handler {
	if kind == kindPage {
		h = b.CSRFProtect(h)
	}
	h = &middleware{b: b, h: h, kind: kind}
	h = b.Compress(h)
	return h
}

func (b *middlewareBuilder) WrapPage(h http.Handler) http.Handler {
	return b.wrap(h, kindPage)
}

func (b *middlewareBuilder) WrapStatic(h http.Handler) http.Handler {
	return b.wrap(h, kindStatic)
}
