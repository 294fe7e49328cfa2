package webui

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/lucke/calcutta-web/internal/admin"
	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/eventlist"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/idgen"
)

type SessionStoreFactory interface {
	NewSessionStore(ctx context.Context, o SessionOptions) sessions.Store
}

// Journal guards mutating forms against repeated submission.
type Journal interface {
	Claim(ctx context.Context, token, kind, username, target string) error
	Finish(ctx context.Context, token string, actionErr error)
	Recent(ctx context.Context) ([]journal.Entry, error)
}

type Config struct {
	Session *session.Service
	Admin   *admin.Service
	Betting *betting.Service
	Events  eventlist.API
	Journal Journal
	// If nil, sessions are stored in cookies.
	SessionStoreFactory SessionStoreFactory

	prefix       string
	serverID     string
	opts         *Options
	sessionStore sessions.Store
}

type SessionOptions struct {
	// Either "cookie" or "db".
	Store           string        `toml:"store"`
	MaxAge          time.Duration `toml:"max-age"`
	CleanupInterval time.Duration `toml:"cleanup-interval"`
	RecheckInterval time.Duration `toml:"recheck-interval"`
	Secure          bool          `toml:"secure"`

	AuthKey []byte `toml:"-"`
	EncKey  []byte `toml:"-"`
}

func (o *SessionOptions) FillDefaults() {
	if o.Store == "" {
		o.Store = "db"
	}
	if o.MaxAge == 0 {
		o.MaxAge = 7 * 24 * time.Hour
	}
	if o.CleanupInterval == 0 {
		o.CleanupInterval = 1 * time.Hour
	}
	if o.RecheckInterval == 0 {
		o.RecheckInterval = 5 * time.Minute
	}
}

func (o SessionOptions) Keys() [][]byte {
	if len(o.EncKey) == 0 {
		return [][]byte{o.AuthKey}
	}
	return [][]byte{o.AuthKey, o.EncKey}
}

func (o SessionOptions) SameSite() http.SameSite {
	return http.SameSiteLaxMode
}

func (o SessionOptions) SetupSession(s *sessions.Options) {
	s.Path = "/"
	s.MaxAge = int(o.MaxAge.Seconds())
	s.Secure = o.Secure
	s.HttpOnly = true
	s.SameSite = o.SameSite()
}

type Options struct {
	Session SessionOptions `toml:"session"`
	// Directory with static files served on top of the built-in ones.
	StaticDir string `toml:"static-dir"`

	CSRFKey []byte `toml:"-"`
}

func (o *Options) FillDefaults() {
	o.Session.FillDefaults()
}

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}

func Handle(ctx context.Context, log *slog.Logger, mux *http.ServeMux, prefix string, cfg Config, o Options) error {
	o.FillDefaults()
	if len(o.CSRFKey) != 32 {
		return fmt.Errorf("csrf key must be 32 bytes long")
	}
	if len(o.Session.AuthKey) == 0 {
		return fmt.Errorf("no session key")
	}

	cfg.prefix = prefix
	cfg.serverID = idgen.ID()
	cfg.opts = &o
	switch o.Session.Store {
	case "db":
		if cfg.SessionStoreFactory == nil {
			return fmt.Errorf("session store \"db\" requires a database")
		}
		cfg.sessionStore = cfg.SessionStoreFactory.NewSessionStore(ctx, o.Session)
	case "cookie":
		store := sessions.NewCookieStore(o.Session.Keys()...)
		o.Session.SetupSession(store.Options)
		cfg.sessionStore = store
	default:
		return fmt.Errorf("unknown session store %q", o.Session.Store)
	}

	static, err := staticFS(o.StaticDir)
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}

	b := middlewareBuilder{
		Log:    log,
		Prefix: prefix,
		CSRFProtect: csrf.Protect(
			o.CSRFKey,
			csrf.Secure(o.Session.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
		),
		Compress: gziphandler.GzipHandler,
	}
	templ := newTemplator(&cfg)
	page := func(h http.Handler, err error) http.Handler {
		return b.WrapPage(must(h, err))
	}

	staticHandler := b.WrapStatic(http.StripPrefix(prefix, http.FileServerFS(static)))
	mux.Handle(prefix+"/css/", staticHandler)
	mux.Handle(prefix+"/img/", staticHandler)
	mux.Handle(prefix+"/{$}", page(homePage(log, &cfg, templ)))
	mux.Handle(prefix+"/login", page(loginPage(log, &cfg, templ)))
	mux.Handle(prefix+"/signup", page(signupPage(log, &cfg, templ)))
	mux.Handle("POST "+prefix+"/logout", page(logoutPage(log, &cfg, templ)))
	mux.Handle(prefix+"/archive", page(archivePage(log, &cfg, templ)))
	mux.Handle(prefix+"/deposit", page(fundsPage(log, &cfg, templ, "Deposit")))
	mux.Handle(prefix+"/withdraw", page(fundsPage(log, &cfg, templ, "Withdraw")))

	mux.Handle("GET "+prefix+"/betting", page(bettingPage(log, &cfg, templ)))
	mux.Handle("POST "+prefix+"/betting/select", page(bettingSelectPage(log, &cfg, templ)))
	mux.Handle("POST "+prefix+"/betting/shortlist", page(bettingShortlistPage(log, &cfg, templ)))
	mux.Handle("POST "+prefix+"/betting/bid/{contestantID}", page(bettingBidPage(log, &cfg, templ)))
	mux.Handle(prefix+"/betting/buy/{contestantID}", page(bettingBuyPage(log, &cfg, templ)))

	mux.Handle("GET "+prefix+"/admin", page(adminPage(log, &cfg, templ)))
	mux.Handle(prefix+"/admin/events/new", page(adminEventNewPage(log, &cfg, templ)))
	mux.Handle(prefix+"/admin/events/{eventID}/edit", page(adminEventEditPage(log, &cfg, templ)))
	mux.Handle("POST "+prefix+"/admin/events/{eventID}/close", page(adminActionPage(log, &cfg, templ, actionCloseEvent)))
	mux.Handle("POST "+prefix+"/admin/events/{eventID}/winner", page(adminActionPage(log, &cfg, templ, actionEventWinner)))
	mux.Handle("POST "+prefix+"/admin/events/{eventID}/sub-events/{subEventID}/close", page(adminActionPage(log, &cfg, templ, actionCloseSubEvent)))
	mux.Handle("POST "+prefix+"/admin/events/{eventID}/sub-events/{subEventID}/winner", page(adminActionPage(log, &cfg, templ, actionSubEventWinner)))

	mux.Handle(prefix+"/", page(e404Page(log, &cfg, templ)))
	return nil
}
